package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/weathernow/internal/weathertest"
)

func TestNewOpenWeatherClient_InvalidAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr error
	}{
		{
			name:    "empty API key",
			apiKey:  "",
			wantErr: ErrInvalidAPIKey,
		},
		{
			name:    "valid API key",
			apiKey:  "valid-api-key-12345",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOpenWeatherClient(tt.apiKey, "https://api.test.com/data", 2*time.Second)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewOpenWeatherClient() error = %v, want %v", err, tt.wantErr)
				}
				if client != nil {
					t.Errorf("NewOpenWeatherClient() expected nil client on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOpenWeatherClient() unexpected error: %v", err)
			}
			if client == nil {
				t.Fatalf("NewOpenWeatherClient() expected client, got nil")
			}
		})
	}
}

func TestOpenWeatherClient_GetCurrentWeather_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q, want /data/2.5/weather", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "47.6062" || q.Get("lon") != "-122.3321" {
			t.Errorf("expected lat/lon in query, got %s", r.URL.RawQuery)
		}
		if q.Get("units") != "metric" {
			t.Errorf("expected units=metric in query, got %q", q.Get("units"))
		}
		if q.Get("appid") != "test-api-key-12345" {
			t.Errorf("expected API key in query, got %q", q.Get("appid"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(weathertest.SampleBody))
	}))
	defer server.Close()

	client, err := NewOpenWeatherClient("test-api-key-12345", server.URL+"/data", 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	got, err := client.GetCurrentWeather(context.Background(), 47.6062, -122.3321)
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}

	want := weathertest.SampleResponse()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetCurrentWeather() = %+v, want %+v", got, want)
	}
}

func TestOpenWeatherClient_GetCurrentWeather_TrailingSlashBase(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(weathertest.SampleBody))
	}))
	defer server.Close()

	client, err := NewOpenWeatherClient("test-api-key-12345", server.URL+"/data/", 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	if _, err := client.GetCurrentWeather(context.Background(), 1, 2); err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if path != "/data/2.5/weather" {
		t.Errorf("path = %q, want /data/2.5/weather", path)
	}
}

func TestOpenWeatherClient_GetCurrentWeather_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
		describe   string
	}{
		{"400 bad request", http.StatusBadRequest, ErrBadRequest, "400 Error: Bad Connection"},
		{"401 unauthorized", http.StatusUnauthorized, ErrInvalidAPIKey, "Generic Error"},
		{"404 not found", http.StatusNotFound, ErrNotFound, "404 Error: Not Found"},
		{"429 rate limited", http.StatusTooManyRequests, ErrRateLimited, "Generic Error"},
		{"500 server error", http.StatusInternalServerError, ErrUpstreamFailure, "Generic Error"},
		{"502 bad gateway", http.StatusBadGateway, ErrUpstreamFailure, "Generic Error"},
		{"418 teapot", http.StatusTeapot, ErrUpstreamFailure, "Generic Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
			if err != nil {
				t.Fatalf("NewOpenWeatherClient() error = %v", err)
			}

			_, err = client.GetCurrentWeather(context.Background(), 10, 20)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetCurrentWeather() error = %v, want %v", err, tt.wantErr)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.statusCode {
				t.Errorf("GetCurrentWeather() error = %v, want StatusError with %d", err, tt.statusCode)
			}
			if got := Describe(err); got != tt.describe {
				t.Errorf("Describe() = %q, want %q", got, tt.describe)
			}
			if attempts != 1 {
				t.Errorf("expected 1 attempt (no retry), got %d", attempts)
			}
		})
	}
}

func TestOpenWeatherClient_GetCurrentWeather_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.GetCurrentWeather(ctx, 0, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GetCurrentWeather() error = %v, want context.Canceled", err)
	}
	if CategorizeError(err) != ErrorCategoryTimeout {
		t.Errorf("CategorizeError() = %v, want timeout", CategorizeError(err))
	}
}

func TestOpenWeatherClient_GetCurrentWeather_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(weathertest.SampleBody))
	}))
	defer server.Close()

	client, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	_, err = client.GetCurrentWeather(context.Background(), 0, 0)
	if err == nil {
		t.Fatal("GetCurrentWeather() expected timeout error, got nil")
	}
	if CategorizeError(err) != ErrorCategoryTimeout {
		t.Errorf("CategorizeError(%v) = %v, want timeout", err, CategorizeError(err))
	}
	if Describe(err) != "Request Failure" {
		t.Errorf("Describe() = %q, want Request Failure", Describe(err))
	}
}

func TestOpenWeatherClient_GetCurrentWeather_CorrelationID(t *testing.T) {
	var capturedCorrID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCorrID = r.Header.Get("X-Correlation-ID")
		_, _ = w.Write([]byte(weathertest.SampleBody))
	}))
	defer server.Close()

	client, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	ctx := context.WithValue(context.Background(), "correlation_id", "test-correlation-id-123")
	if _, err := client.GetCurrentWeather(ctx, 1, 1); err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}

	if capturedCorrID != "test-correlation-id-123" {
		t.Errorf("X-Correlation-ID header = %q, want %q", capturedCorrID, "test-correlation-id-123")
	}
}

func TestOpenWeatherClient_GetCurrentWeather_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"weather": [`))
	}))
	defer server.Close()

	client, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	_, err = client.GetCurrentWeather(context.Background(), 0, 0)
	if err == nil || !strings.Contains(err.Error(), "parse response") {
		t.Fatalf("GetCurrentWeather() error = %v, want parse response error", err)
	}
	if CategorizeError(err) != ErrorCategoryParsing {
		t.Errorf("CategorizeError() = %v, want parsing", CategorizeError(err))
	}
}

func TestOpenWeatherClient_GetCurrentWeather_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewOpenWeatherClient("test-api-key-12345", url, time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	_, err = client.GetCurrentWeather(context.Background(), 0, 0)
	if err == nil || !strings.Contains(err.Error(), "http request failed") {
		t.Fatalf("GetCurrentWeather() error = %v, want transport failure", err)
	}
	if CategorizeError(err) != ErrorCategoryNetwork {
		t.Errorf("CategorizeError() = %v, want network", CategorizeError(err))
	}
}

func TestOpenWeatherClient_GetCurrentWeather_InvalidURL(t *testing.T) {
	client := &OpenWeatherClient{apiKey: "test-api-key-12345", baseURL: "://bad", timeout: time.Second, client: http.DefaultClient}

	_, err := client.GetCurrentWeather(context.Background(), 0, 0)
	if err == nil || !strings.Contains(err.Error(), "build request") {
		t.Errorf("GetCurrentWeather() error = %v, want build request error", err)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "success"},
		{204, "success"},
		{429, "rate_limited"},
		{404, "client_error"},
		{503, "server_error"},
		{302, "error"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.code); got != tt.want {
			t.Errorf("statusLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestRedactKey(t *testing.T) {
	got := RedactKey("https://x/2.5/weather?appid=secret123&lat=1", "secret123")
	if strings.Contains(got, "secret123") {
		t.Errorf("RedactKey() = %q, still contains key", got)
	}
	if RedactKey("unchanged", "") != "unchanged" {
		t.Error("RedactKey() with empty key should return input")
	}
}

func TestOpenWeatherClient_TransportErrorRedactsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewOpenWeatherClient("very-secret-key-42", url, time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	_, err = client.GetCurrentWeather(context.Background(), 0, 0)
	if err == nil {
		t.Fatal("GetCurrentWeather() expected error")
	}
	if strings.Contains(err.Error(), "very-secret-key-42") {
		t.Errorf("error leaks API key: %v", err)
	}
}
