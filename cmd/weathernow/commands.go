package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/config"
	"github.com/kjstillabower/weathernow/internal/observability"
	"github.com/kjstillabower/weathernow/internal/present"
)

type rootOptions struct {
	env       string
	configDir string
	asJSON    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "weathernow",
		Short:         "Current weather for where you are, cached between runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.env, "env", "", "config environment name (overrides ENV_NAME)")
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "directory holding {env}.yaml and secrets.yaml (default ./config)")

	root.AddCommand(
		newShowCommand(opts),
		newRefreshCommand(opts),
		newServeCommand(opts),
	)
	return root
}

func (o *rootOptions) loadConfig(opts ...config.LoadOption) (*config.Config, error) {
	if o.env == "" && o.configDir == "" {
		return config.Load(opts...)
	}
	env := o.env
	if env == "" {
		env = os.Getenv("ENV_NAME")
	}
	if env == "" {
		env = "dev"
	}
	dir := o.configDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: get working directory: %w", err)
		}
		dir = filepath.Join(cwd, "config")
	}
	return config.LoadFrom(dir, env, opts...)
}

// setup loads config and the logger shared by every command.
func (o *rootOptions) setup(opts ...config.LoadOption) (*config.Config, *zap.Logger, error) {
	logger, err := observability.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	cfg, err := o.loadConfig(opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func flushLogger(logger *zap.Logger) {
	_ = observability.FlushTelemetry(context.Background(), logger)
}

func writeView(w io.Writer, v present.View, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return present.Render(w, v)
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the last cached weather without fetching",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup(config.WithoutAPIKey())
			if err != nil {
				return err
			}
			defer flushLogger(logger)

			c, err := wireCache(cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			view, ok := c.cached(cmd.Context())
			if !ok {
				fmt.Fprintln(cmd.ErrOrStderr(), "No weather cached yet. Run `weathernow refresh`.")
				return nil
			}
			return writeView(cmd.OutOrStdout(), view, opts.asJSON)
		},
	}
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the view as JSON")
	return cmd
}

func newRefreshCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Locate, fetch current weather, cache it and render it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer flushLogger(logger)

			c, err := wire(cfg, logger, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()

			view, ok, err := c.app.Refresh(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("refreshed weather could not be read back from the cache")
			}
			return writeView(cmd.OutOrStdout(), view, opts.asJSON)
		},
	}
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the view as JSON")
	return cmd
}
