package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kjstillabower/weathernow/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		// Notices were already shown to the user.
		if _, ok := service.NoticeFor(err); !ok {
			fmt.Fprintf(os.Stderr, "weathernow: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
