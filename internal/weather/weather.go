package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comigor/calendar-agent/internal/config"
	"github.com/comigor/calendar-agent/internal/logger"
)

const (
	DefaultDays = 7
	MaxDays     = 14
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("weather: api key not configured")

// Sample is one observation or forecast slot reduced to what installers care about.
type Sample struct {
	Date        string  `json:"date,omitempty"`
	Temperature int     `json:"temperature"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	WindSpeed   float64 `json:"wind_speed"`
	WindDeg     float64 `json:"wind_deg"`
	Suitable    bool    `json:"suitable_for_installation"`

	at time.Time
}

// Time is the local time of a forecast sample; zero for current conditions.
func (s Sample) Time() time.Time { return s.at }

type Report struct {
	OK       bool     `json:"ok"`
	Location string   `json:"location"`
	Current  Sample   `json:"current"`
	Forecast []Sample `json:"forecast"`
}

// Query selects the place and forecast length. Without coordinates the
// configured location name is used.
type Query struct {
	Days int
	Lat  *float64
	Lon  *float64
}

// Suitable reports whether outdoor installation work is possible: no
// precipitation, above freezing and wind below 10 m/s.
func Suitable(condition string, temp, wind float64) bool {
	switch strings.ToLower(condition) {
	case "rain", "drizzle", "thunderstorm", "snow":
		return false
	}
	return temp > 0 && wind < 10
}

// Client talks to the OpenWeatherMap 2.5 API.
type Client struct {
	cfg    config.WeatherConfig
	client *http.Client
	loc    *time.Location
}

func NewClient(cfg config.WeatherConfig) *Client {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		if cfg.Timezone != "" {
			logger.L.Warn("unknown weather timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		}
		loc = time.UTC
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		loc:    loc,
	}
}

func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// Location is the time zone forecast days are bucketed in.
func (c *Client) Location() *time.Location { return c.loc }

type owmSample struct {
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
}

type owmForecast struct {
	List []owmSample `json:"list"`
}

func (s owmSample) reduce() Sample {
	var condition, description string
	if len(s.Weather) > 0 {
		condition = strings.ToLower(s.Weather[0].Main)
		description = s.Weather[0].Description
	}
	return Sample{
		Temperature: int(math.Round(s.Main.Temp)),
		Description: description,
		Condition:   condition,
		WindSpeed:   s.Wind.Speed,
		WindDeg:     s.Wind.Deg,
		Suitable:    Suitable(condition, s.Main.Temp, s.Wind.Speed),
	}
}

// Report fetches current conditions and the forecast in parallel.
func (c *Client) Report(ctx context.Context, q Query) (*Report, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	days := q.Days
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	params := url.Values{
		"appid": {c.cfg.APIKey},
		"units": {"metric"},
	}
	if c.cfg.Lang != "" {
		params.Set("lang", c.cfg.Lang)
	}
	if q.Lat != nil && q.Lon != nil {
		params.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	} else {
		params.Set("q", c.cfg.Location)
	}

	var (
		current  owmSample
		forecast owmForecast
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.get(gctx, "weather", params, &current) })
	g.Go(func() error { return c.get(gctx, "forecast", params, &forecast) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	location := current.Name
	if location == "" {
		location = c.cfg.Location
	}
	return &Report{
		OK:       true,
		Location: location,
		Current:  current.reduce(),
		Forecast: c.daily(forecast.List, days),
	}, nil
}

// daily keeps the first midday (11:00 to 14:59 local) slot of each day.
func (c *Client) daily(list []owmSample, days int) []Sample {
	out := make([]Sample, 0, days)
	seen := make(map[string]bool)
	for _, item := range list {
		at := time.Unix(item.Dt, 0).In(c.loc)
		key := at.Format(time.DateOnly)
		if seen[key] || at.Hour() < 11 || at.Hour() > 14 {
			continue
		}
		s := item.reduce()
		s.Date = at.Format(time.RFC3339)
		s.at = at
		out = append(out, s)
		seen[key] = true
		if len(out) >= days {
			break
		}
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("weather %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Message != "" {
			return fmt.Errorf("weather %s: %s (status %d)", path, body.Message, resp.StatusCode)
		}
		return fmt.Errorf("weather %s: unexpected status code: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("weather %s: malformed response: %w", path, err)
	}
	return nil
}
