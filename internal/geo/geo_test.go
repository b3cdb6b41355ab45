package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/config"
)

func TestLocate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/203.0.113.7/json/":
			_, _ = w.Write([]byte(`{"city":"Košice","country_code":"SK","latitude":48.72,"longitude":21.26}`))
		case "/198.51.100.1/json/":
			_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	l := NewLocator(config.GeoConfig{BaseURL: srv.URL, Timeout: time.Second})
	ctx := context.Background()

	require.Equal(t, Location{OK: true, City: "Košice", Country: "SK", Latitude: 48.72, Longitude: 21.26}, l.Locate(ctx, "203.0.113.7"))
	require.Equal(t, Fallback, l.Locate(ctx, "198.51.100.1"))
	require.Equal(t, Fallback, l.Locate(ctx, "192.0.2.1"))
	require.Equal(t, Fallback, l.Locate(ctx, "127.0.0.1"))
	require.Equal(t, Fallback, l.Locate(ctx, "unknown"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/geolocation", nil)
	require.Equal(t, "unknown", ClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", ClientIP(r))
}
