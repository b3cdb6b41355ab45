package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientType selects the transport used to reach an MCP server.
type ClientType string

const (
	ClientTypeSSE            ClientType = "sse"
	ClientTypeStreamableHTTP ClientType = "streamable_http"
	ClientTypeStdio          ClientType = "stdio"
)

// Config holds the application configuration
type Config struct {
	LLM        LLMConfig
	Server     ServerConfig
	Calendar   CalendarConfig
	Weather    WeatherConfig
	Search     SearchConfig
	Geo        GeoConfig
	Session    SessionConfig
	Log        LogConfig
	MCP        MCPConfig
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	SystemPrompt  string        `mapstructure:"system_prompt"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

// CalendarConfig points at the Google Apps Script web app that fronts the calendars.
type CalendarConfig struct {
	ScriptURL string        `mapstructure:"script_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// WeatherConfig holds the OpenWeatherMap configuration
type WeatherConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Location string        `mapstructure:"location"`
	Timezone string        `mapstructure:"timezone"`
	Lang     string        `mapstructure:"lang"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SearchConfig holds the SearxNG configuration
type SearchConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Language   string        `mapstructure:"language"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// GeoConfig holds the IP geolocation configuration
type GeoConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig selects and tunes the conversation store.
type SessionConfig struct {
	Backend   string        `mapstructure:"backend"`
	DBPath    string        `mapstructure:"db_path"`
	TTL       time.Duration `mapstructure:"ttl"`
	DefaultID string        `mapstructure:"default_id"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MCPConfig controls the MCP endpoint that exposes the local tools.
type MCPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MCPServerConfig describes a remote MCP server whose tools are offered to the model.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    ClientType        `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Headers map[string]string `mapstructure:"headers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_tool_rounds", 10)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3001")

	v.SetDefault("calendar.timeout", 30*time.Second)

	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.location", "Bratislava,SK")
	v.SetDefault("weather.timezone", "Europe/Bratislava")
	v.SetDefault("weather.lang", "sk")
	v.SetDefault("weather.timeout", 30*time.Second)

	// empty leaves web_search unregistered; the key must still exist for env overrides
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", 30*time.Second)

	v.SetDefault("geo.base_url", "https://ipapi.co")
	v.SetDefault("geo.timeout", 10*time.Second)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.db_path", "history.db")
	v.SetDefault("session.default_id", "default")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("mcp.enabled", false)
	v.SetDefault("mcp.path", "/mcp")
}

// legacyEnv maps config keys to the plain environment names older deployments set.
var legacyEnv = map[string]string{
	"llm.api_key":         "OPENAI_API_KEY",
	"calendar.script_url": "GOOGLE_SCRIPT_URL",
	"weather.api_key":     "WEATHER_API_KEY",
	"weather.location":    "WEATHER_LOCATION",
	"server.port":         "PORT",
}

// Load loads the configuration from config.yaml in the working directory, or from
// the file named by CONFIG_PATH. A missing file is not an error: defaults and
// environment variables still apply.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit config file path. An empty path searches for
// config.yaml in the working directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "AGENT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
