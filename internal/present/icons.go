package present

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/observability"
)

// Placeholder names a bundled fallback image.
type Placeholder string

const (
	Sunny     Placeholder = "sunny"
	Cloud     Placeholder = "cloud"
	Rain      Placeholder = "rain"
	Storm     Placeholder = "storm"
	Snowflake Placeholder = "snowflake"
)

var placeholders = map[string]Placeholder{
	"01d": Sunny,
	"02d": Cloud,
	"03d": Cloud,
	"04d": Cloud,
	"04n": Cloud,
	"01n": Cloud,
	"02n": Cloud,
	"03n": Cloud,
	"10n": Cloud,
	"10d": Rain,
	"11d": Storm,
	"11n": Rain,
	"13d": Snowflake,
	"13n": Snowflake,
}

// PlaceholderFor returns the fallback image for an icon code. Unknown codes
// get Snowflake.
func PlaceholderFor(code string) Placeholder {
	if p, ok := placeholders[code]; ok {
		return p
	}
	return Snowflake
}

// IconURL builds the 4x PNG URL for code.
func IconURL(base, code string) string {
	if base == "" {
		base = DefaultIconBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + code + "@4x.png"
}

// maxIconBytes caps a downloaded icon.
const maxIconBytes = 1 << 20

// Icon is a loaded condition image. Data is empty when only the placeholder
// is available.
type Icon struct {
	Code        string
	URL         string
	Data        []byte
	ContentType string
	Placeholder Placeholder
}

// Remote reports whether the remote image was loaded.
func (i Icon) Remote() bool { return len(i.Data) > 0 }

// IconLoader downloads condition icons and keeps them in memory.
type IconLoader struct {
	baseURL string
	fetch   bool
	client  *http.Client
	cache   *gocache.Cache
	logger  *zap.Logger
}

// NewIconLoader returns a loader. With fetch=false it only returns placeholders.
func NewIconLoader(baseURL string, ttl, timeout time.Duration, fetch bool, logger *zap.Logger) *IconLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IconLoader{
		baseURL: baseURL,
		fetch:   fetch,
		client:  &http.Client{Timeout: timeout},
		cache:   gocache.New(ttl, ttl*2),
		logger:  logger,
	}
}

// Load returns the icon for code. Any failure yields the placeholder alone.
func (l *IconLoader) Load(ctx context.Context, code string) Icon {
	icon := Icon{Code: code, URL: IconURL(l.baseURL, code), Placeholder: PlaceholderFor(code)}
	if !l.fetch || code == "" {
		observability.IconLoadsTotal.WithLabelValues("placeholder").Inc()
		return icon
	}

	if cached, found := l.cache.Get(code); found {
		if data, ok := cached.([]byte); ok {
			observability.IconLoadsTotal.WithLabelValues("memory").Inc()
			icon.Data = data
			icon.ContentType = "image/png"
			return icon
		}
	}

	data, ctype, err := l.download(ctx, icon.URL)
	if err != nil {
		l.logger.Debug("icon download failed, using placeholder",
			zap.String("code", code),
			zap.String("placeholder", string(icon.Placeholder)),
			zap.Error(err),
		)
		observability.IconLoadsTotal.WithLabelValues("placeholder").Inc()
		return icon
	}
	l.cache.Set(code, data, gocache.DefaultExpiration)
	observability.IconLoadsTotal.WithLabelValues("remote").Inc()
	icon.Data = data
	icon.ContentType = ctype
	return icon
}

func (l *IconLoader) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("icon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, "", fmt.Errorf("icon HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read icon: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty icon body")
	}
	ctype := resp.Header.Get("Content-Type")
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ctype, "image/") {
		return nil, "", fmt.Errorf("unexpected icon content type %q", ctype)
	}
	return data, ctype, nil
}
