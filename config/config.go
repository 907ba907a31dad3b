package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"weather-forecast/internal/models"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	App         AppConfig         `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Sentry      SentryConfig      `yaml:"sentry"`
	OpenWeather OpenWeatherConfig `yaml:"openweather"`
	Loader      LoaderConfig      `yaml:"loader"`
	Refresh     RefreshConfig     `yaml:"refresh"`
}

type AppConfig struct {
	Name    string `yaml:"name" envconfig:"APP_NAME"`
	Version string `yaml:"version" envconfig:"APP_VERSION"`
	Env     string `yaml:"env" envconfig:"APP_ENV"`
}

// ServerConfig timeouts are in seconds.
type ServerConfig struct {
	Port         string `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout  int    `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout int    `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  int    `yaml:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT"`
}

// LogConfig level is a zap level name. Output is always JSON.
type LogConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
}

type SentryConfig struct {
	DSN   string `yaml:"dsn" envconfig:"SENTRY_DSN"`
	Debug bool   `yaml:"debug" envconfig:"SENTRY_DEBUG"`
}

type OpenWeatherConfig struct {
	BaseURL      string          `yaml:"base_url" envconfig:"OPENWEATHER_BASE_URL"`
	APIKey       string          `yaml:"api_key,omitempty" envconfig:"OPENWEATHER_API_KEY"`
	Units        string          `yaml:"units" envconfig:"OPENWEATHER_UNITS"`
	DefaultQuery string          `yaml:"default_query" envconfig:"OPENWEATHER_DEFAULT_QUERY"`
	Timeout      int             `yaml:"timeout" envconfig:"OPENWEATHER_TIMEOUT"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig of zero RPS disables throttling.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" envconfig:"OPENWEATHER_RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" envconfig:"OPENWEATHER_RATE_LIMIT_BURST"`
}

type LoaderConfig struct {
	SingleFlight bool `yaml:"single_flight" envconfig:"LOADER_SINGLE_FLIGHT"`
	LoadTimeout  int  `yaml:"load_timeout" envconfig:"LOADER_LOAD_TIMEOUT"`
	LoadOnStart  bool `yaml:"load_on_start" envconfig:"LOADER_LOAD_ON_START"`
}

// RefreshConfig with an empty Cron disables periodic reloads.
type RefreshConfig struct {
	Cron string `yaml:"cron" envconfig:"REFRESH_CRON"`
}

// Default is the configuration used for everything neither the file nor the environment sets.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:    "weather-forecast",
			Version: "1.0.0",
			Env:     "development",
		},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  10,
			WriteTimeout: 10,
			IdleTimeout:  120,
		},
		Log: LogConfig{
			Level: "info",
		},
		OpenWeather: OpenWeatherConfig{
			BaseURL:      "https://api.openweathermap.org/data/2.5",
			Units:        string(models.UnitsImperial),
			DefaultQuery: "Corvallis,OR,US",
			Timeout:      30,
			RateLimit: RateLimitConfig{
				RPS:   1,
				Burst: 5,
			},
		},
		Loader: LoaderConfig{
			LoadTimeout: 45,
			LoadOnStart: true,
		},
	}
}

// ConfigProvider loads and validates configuration.
type ConfigProvider interface {
	Load() (*Config, error)
	Validate(config *Config) error
}

// FileConfigProvider starts from Default, applies a YAML file, then lets the environment override it.
// A .env file in the working directory is loaded into the environment first, if present.
type FileConfigProvider struct {
	path    string
	envFile string
}

func NewFileConfigProvider(path string) *FileConfigProvider {
	return &FileConfigProvider{
		path:    path,
		envFile: ".env",
	}
}

func (p *FileConfigProvider) Load() (*Config, error) {
	cnf := Default()

	if err := p.loadEnvFile(); err != nil {
		return nil, err
	}

	if err := p.loadFromFile(&cnf); err != nil {
		return nil, err
	}

	// Override with environment variables. Only variables that are set are applied.
	if err := envconfig.Process("", &cnf); err != nil {
		return nil, fmt.Errorf("error environment variable parsing: %w", err)
	}

	return &cnf, nil
}

func (p *FileConfigProvider) loadEnvFile() error {
	if p.envFile == "" {
		return nil
	}
	if _, err := os.Stat(p.envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(p.envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", p.envFile, err)
	}
	return nil
}

// loadFromFile is a no-op when the file does not exist.
func (p *FileConfigProvider) loadFromFile(cnf *Config) error {
	yamlData, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", p.path, err)
	}

	if err := yaml.Unmarshal(yamlData, cnf); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

func (p *FileConfigProvider) Validate(config *Config) error {
	var problems []string

	if strings.TrimSpace(config.App.Name) == "" {
		problems = append(problems, "app.name is required")
	}
	if strings.TrimSpace(config.Server.Port) == "" {
		problems = append(problems, "server.port is required")
	}
	if config.Server.ReadTimeout <= 0 || config.Server.WriteTimeout <= 0 || config.Server.IdleTimeout <= 0 {
		problems = append(problems, "server timeouts must be positive")
	}
	if strings.TrimSpace(config.OpenWeather.BaseURL) == "" {
		problems = append(problems, "openweather.base_url is required")
	}
	if strings.TrimSpace(config.OpenWeather.APIKey) == "" {
		problems = append(problems, "openweather.api_key is required")
	}
	if _, err := models.ParseUnits(config.OpenWeather.Units); err != nil {
		problems = append(problems, "openweather.units: "+err.Error())
	}
	if config.OpenWeather.Timeout <= 0 {
		problems = append(problems, "openweather.timeout must be positive")
	}
	if config.OpenWeather.RateLimit.RPS < 0 {
		problems = append(problems, "openweather.rate_limit.rps must not be negative")
	}
	if config.OpenWeather.RateLimit.RPS > 0 && config.OpenWeather.RateLimit.Burst < 1 {
		problems = append(problems, "openweather.rate_limit.burst must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}

	return nil
}

// NewConfigWithProvider loads through provider and validates the result.
func NewConfigWithProvider(provider ConfigProvider) (*Config, error) {
	cnf, err := provider.Load()
	if err != nil {
		return nil, err
	}

	if err := provider.Validate(cnf); err != nil {
		return nil, err
	}

	return cnf, nil
}

// NewConfig loads from CONFIG_PATH, or config/config.yaml when unset.
func NewConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	return NewConfigWithProvider(NewFileConfigProvider(path))
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Units returns the configured provider units. Validate guarantees they parse.
func (c *Config) Units() models.Units {
	u, err := models.ParseUnits(c.OpenWeather.Units)
	if err != nil {
		return models.UnitsImperial
	}
	return u
}

func (c *Config) OpenWeatherTimeout() time.Duration {
	return time.Duration(c.OpenWeather.Timeout) * time.Second
}

func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.Loader.LoadTimeout) * time.Second
}
