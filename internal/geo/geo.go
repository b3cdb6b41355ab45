package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/comigor/calendar-agent/internal/config"
	"github.com/comigor/calendar-agent/internal/logger"
)

// Location is an approximate position of a client.
type Location struct {
	OK        bool    `json:"ok"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fallback is returned whenever the address cannot be located.
var Fallback = Location{OK: true, City: "Bratislava", Country: "SK", Latitude: 48.1486, Longitude: 17.1077}

// Locator resolves IP addresses through an ipapi.co compatible service.
type Locator struct {
	baseURL string
	client  *http.Client
}

func NewLocator(cfg config.GeoConfig) *Locator {
	return &Locator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func isLocal(ip string) bool {
	return ip == "" || ip == "unknown" || strings.Contains(ip, "127.0.0.1") || strings.Contains(ip, "::1")
}

// Locate never fails: lookup errors are logged and answered with Fallback.
func (l *Locator) Locate(ctx context.Context, ip string) Location {
	if isLocal(ip) || l.baseURL == "" {
		return Fallback
	}
	loc, err := l.lookup(ctx, ip)
	if err != nil {
		logger.L.Warn("geolocation lookup failed", "ip", ip, "error", err)
		return Fallback
	}
	return loc
}

func (l *Locator) lookup(ctx context.Context, ip string) (Location, error) {
	endpoint := fmt.Sprintf("%s/%s/json/", l.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	var data struct {
		Error       bool    `json:"error"`
		Reason      string  `json:"reason"`
		City        string  `json:"city"`
		CountryCode string  `json:"country_code"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Location{}, err
	}
	if data.Error {
		return Location{}, fmt.Errorf("ipapi: %s", data.Reason)
	}

	loc := Fallback
	if data.City != "" {
		loc.City = data.City
	}
	if data.CountryCode != "" {
		loc.Country = data.CountryCode
	}
	if data.Latitude != 0 {
		loc.Latitude = data.Latitude
	}
	if data.Longitude != 0 {
		loc.Longitude = data.Longitude
	}
	return loc, nil
}

// ClientIP picks the caller address from reverse proxy headers. The first
// X-Forwarded-For hop wins.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if rip := r.Header.Get("X-Real-Ip"); rip != "" {
		return rip
	}
	return "unknown"
}
