package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/lifecycle"
	"github.com/kjstillabower/weathernow/internal/present"
	"github.com/kjstillabower/weathernow/internal/service"
	"github.com/kjstillabower/weathernow/internal/traffic"
)

type mockApp struct {
	view       present.View
	cached     bool
	refreshOK  bool
	refreshErr error
	refreshes  int
}

func (m *mockApp) Startup(ctx context.Context) (present.View, bool) {
	return m.view, m.cached
}

func (m *mockApp) Refresh(ctx context.Context) (present.View, bool, error) {
	m.refreshes++
	if m.refreshErr != nil {
		return present.View{}, false, m.refreshErr
	}
	return m.view, m.refreshOK, nil
}

type mockIcons struct {
	data  []byte
	codes []string
}

func (m *mockIcons) Load(ctx context.Context, code string) present.Icon {
	m.codes = append(m.codes, code)
	icon := present.Icon{Code: code, Placeholder: present.PlaceholderFor(code)}
	if m.data != nil {
		icon.Data = m.data
		icon.ContentType = "image/png"
	}
	return icon
}

var sampleView = present.View{
	Main: "Clouds", Description: "broken clouds", Background: present.Day,
	IconCode: "04d", Temp: "15.5°C", Name: "Seattle", Country: "US",
}

func newTestRouter(app WeatherApp, icons IconSource, hc *HealthConfig, limiter *rate.Limiter) http.Handler {
	return NewRouter(NewHandler(app, icons, hc, zap.NewNop()), zap.NewNop(), limiter, time.Second)
}

func resetState(t *testing.T) {
	t.Helper()
	traffic.Reset()
	lifecycle.Reset()
	t.Cleanup(func() {
		traffic.Reset()
		lifecycle.Reset()
	})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	if body.Error.RequestID == "" {
		t.Error("error body missing requestId")
	}
	return body.Error.Code
}

func TestGetWeather(t *testing.T) {
	resetState(t)

	t.Run("cached view", func(t *testing.T) {
		rec := serve(newTestRouter(&mockApp{view: sampleView, cached: true}, &mockIcons{}, nil, nil), http.MethodGet, "/weather")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var got present.View
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Name != "Seattle" || got.Temp != "15.5°C" {
			t.Errorf("view = %+v", got)
		}
		if rec.Header().Get("X-Correlation-ID") == "" {
			t.Error("missing X-Correlation-ID header")
		}
	})

	t.Run("empty cache", func(t *testing.T) {
		app := &mockApp{}
		rec := serve(newTestRouter(app, &mockIcons{}, nil, nil), http.MethodGet, "/weather")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if code := errorCode(t, rec); code != "NO_DATA" {
			t.Errorf("code = %q, want NO_DATA", code)
		}
		if app.refreshes != 0 {
			t.Error("GET /weather must not refresh")
		}
	})
}

// TestPostRefresh verifies how each refresh outcome maps to a status and error code.
func TestPostRefresh(t *testing.T) {
	tests := []struct {
		name       string
		app        *mockApp
		wantStatus int
		wantCode   string
	}{
		{"success", &mockApp{view: sampleView, refreshOK: true}, http.StatusOK, ""},
		{"location off", &mockApp{refreshErr: service.ErrLocationOff}, http.StatusConflict, "LOCATION_OFF"},
		{"offline", &mockApp{refreshErr: service.ErrOffline}, http.StatusConflict, "NO_NETWORK"},
		{"no fix", &mockApp{refreshErr: service.ErrNoLocation}, http.StatusConflict, "NO_LOCATION"},
		{"upstream", &mockApp{refreshErr: errors.Join(service.ErrFetchFailed, &client.StatusError{StatusCode: 404, Err: client.ErrNotFound})}, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"timeout", &mockApp{refreshErr: context.DeadlineExceeded}, http.StatusGatewayTimeout, "TIMEOUT"},
		{"other", &mockApp{refreshErr: errors.New("disk full")}, http.StatusInternalServerError, "INTERNAL"},
		{"read back failed", &mockApp{refreshOK: false}, http.StatusInternalServerError, "CACHE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetState(t)
			rec := serve(newTestRouter(tt.app, &mockIcons{}, nil, nil), http.MethodPost, "/weather/refresh")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if code := errorCode(t, rec); code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
			}
		})
	}
}

func TestPostRefresh_UpstreamMessage(t *testing.T) {
	resetState(t)
	app := &mockApp{refreshErr: errors.Join(service.ErrFetchFailed, &client.StatusError{StatusCode: 400, Err: client.ErrBadRequest})}
	rec := serve(newTestRouter(app, &mockIcons{}, nil, nil), http.MethodPost, "/weather/refresh")
	if !strings.Contains(rec.Body.String(), "400 Error: Bad Connection") {
		t.Errorf("body = %s, want bad connection message", rec.Body.String())
	}
}

func TestPostRefresh_WrongMethod(t *testing.T) {
	resetState(t)
	rec := serve(newTestRouter(&mockApp{}, &mockIcons{}, nil, nil), http.MethodGet, "/weather/refresh")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestPostRefresh_RateLimited(t *testing.T) {
	resetState(t)
	app := &mockApp{view: sampleView, refreshOK: true}
	h := newTestRouter(app, &mockIcons{}, nil, rate.NewLimiter(rate.Every(time.Hour), 1))

	if rec := serve(h, http.MethodPost, "/weather/refresh"); rec.Code != http.StatusOK {
		t.Fatalf("first refresh status = %d, want 200", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/weather/refresh")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh status = %d, want 429", rec.Code)
	}
	if code := errorCode(t, rec); code != "RATE_LIMITED" {
		t.Errorf("code = %q, want RATE_LIMITED", code)
	}
	if app.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", app.refreshes)
	}
	if got := traffic.Window(time.Minute).Denied; got != 1 {
		t.Errorf("recorded denials = %d, want 1", got)
	}

	// Reads are never rate limited.
	if rec := serve(h, http.MethodGet, "/weather"); rec.Code == http.StatusTooManyRequests {
		t.Error("GET /weather was rate limited")
	}
}

func TestGetIcon(t *testing.T) {
	resetState(t)
	png := []byte("\x89PNG\r\n\x1a\n")

	t.Run("explicit code", func(t *testing.T) {
		icons := &mockIcons{data: png}
		rec := serve(newTestRouter(&mockApp{}, icons, nil, nil), http.MethodGet, "/weather/icon?code=10d")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type = %q", ct)
		}
		if rec.Body.String() != string(png) {
			t.Error("body is not the icon bytes")
		}
		if len(icons.codes) != 1 || icons.codes[0] != "10d" {
			t.Errorf("loaded codes = %v", icons.codes)
		}
	})

	t.Run("code from cached view", func(t *testing.T) {
		icons := &mockIcons{data: png}
		rec := serve(newTestRouter(&mockApp{view: sampleView, cached: true}, icons, nil, nil), http.MethodGet, "/weather/icon")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(icons.codes) != 1 || icons.codes[0] != "04d" {
			t.Errorf("loaded codes = %v, want [04d]", icons.codes)
		}
	})

	t.Run("placeholder only", func(t *testing.T) {
		rec := serve(newTestRouter(&mockApp{}, &mockIcons{}, nil, nil), http.MethodGet, "/weather/icon?code=11d")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if got := rec.Header().Get("X-Placeholder-Icon"); got != "storm" {
			t.Errorf("X-Placeholder-Icon = %q, want storm", got)
		}
		if code := errorCode(t, rec); code != "ICON_UNAVAILABLE" {
			t.Errorf("code = %q", code)
		}
	})

	t.Run("no cached view", func(t *testing.T) {
		rec := serve(newTestRouter(&mockApp{}, &mockIcons{}, nil, nil), http.MethodGet, "/weather/icon")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("invalid code", func(t *testing.T) {
		icons := &mockIcons{}
		rec := serve(newTestRouter(&mockApp{}, icons, nil, nil), http.MethodGet, "/weather/icon?code=../etc")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if len(icons.codes) != 0 {
			t.Error("invalid code reached the icon loader")
		}
	})
}

func healthStatus(t *testing.T, rec *httptest.ResponseRecorder) (string, map[string]string) {
	t.Helper()
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return body.Status, body.Checks
}

// TestGetHealth verifies status priority: shutting-down > overloaded > degraded > healthy.
func TestGetHealth(t *testing.T) {
	hc := &HealthConfig{RateLimitRPS: 1, DegradedWindow: 2 * time.Second, DegradedErrorPct: 50}

	tests := []struct {
		name       string
		setup      func()
		wantStatus string
		wantCode   int
	}{
		{"healthy", func() {}, "healthy", http.StatusOK},
		{"healthy with some errors", func() {
			traffic.Record(traffic.Success)
			traffic.Record(traffic.Success)
			traffic.Record(traffic.Error)
		}, "healthy", http.StatusOK},
		{"degraded", func() {
			traffic.Record(traffic.Success)
			traffic.Record(traffic.Error)
		}, "degraded", http.StatusServiceUnavailable},
		{"overloaded", func() {
			for i := 0; i < 3; i++ {
				traffic.Record(traffic.Denied)
			}
		}, "overloaded", http.StatusServiceUnavailable},
		{"shutting down", func() {
			traffic.Record(traffic.Error)
			lifecycle.BeginDrain()
		}, "shutting-down", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetState(t)
			tt.setup()
			rec := serve(newTestRouter(&mockApp{}, &mockIcons{}, hc, nil), http.MethodGet, "/health")
			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			if status, _ := healthStatus(t, rec); status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
		})
	}
}

func TestGetHealth_CacheCheck(t *testing.T) {
	resetState(t)
	for _, tt := range []struct {
		name string
		ping error
		want string
	}{
		{"reachable", nil, "healthy"},
		{"unreachable", errors.New("dial tcp"), "unhealthy"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			hc := &HealthConfig{CachePing: func(context.Context) error { return tt.ping }}
			rec := serve(newTestRouter(&mockApp{}, &mockIcons{}, hc, nil), http.MethodGet, "/health")
			_, checks := healthStatus(t, rec)
			if checks["cache"] != tt.want {
				t.Errorf("checks[cache] = %q, want %q", checks["cache"], tt.want)
			}
		})
	}
}

func TestGetHealth_NilConfig(t *testing.T) {
	resetState(t)
	traffic.Record(traffic.Error)
	rec := serve(newTestRouter(&mockApp{}, &mockIcons{}, nil, nil), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200 without thresholds", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	resetState(t)
	h := newTestRouter(&mockApp{view: sampleView, cached: true}, &mockIcons{}, nil, nil)
	serve(h, http.MethodGet, "/weather")

	rec := serve(h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `httpRequestsTotal{method="GET",route="/weather",statusCode="2xx"}`) {
		t.Error("metrics missing httpRequestsTotal for /weather")
	}
}

func TestGetHealth_ReportsDrainStart(t *testing.T) {
	resetState(t)
	router := newTestRouter(&mockApp{}, &mockIcons{}, nil, nil)

	var body map[string]interface{}
	rec := serve(router, http.MethodGet, "/health")
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if _, ok := body["drainingSince"]; ok {
		t.Error("drainingSince present while serving")
	}

	lifecycle.BeginDrain()
	rec = serve(router, http.MethodGet, "/health")
	body = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", rec.Code)
	}
	if _, ok := body["drainingSince"].(string); !ok {
		t.Errorf("drainingSince = %v, want RFC3339 string", body["drainingSince"])
	}
}
