package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Provider ProviderConfig `mapstructure:"provider"`
	Compose  ComposeConfig  `mapstructure:"compose"`
}

// APIConfig holds HTTP server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json (default) or console
}

// DispatchConfig holds dispatch cycle configuration.
type DispatchConfig struct {
	// CronSecret authorizes calls to the dispatch trigger endpoint.
	CronSecret string `mapstructure:"cron_secret"`
	// BatchSize caps how many due messages one cycle may process.
	BatchSize int `mapstructure:"batch_size"`
	// EnableCron starts the in-process periodic trigger. Deployments that
	// invoke the trigger endpoint from an external scheduler leave this off.
	EnableCron bool `mapstructure:"enable_cron"`
	// CronSchedule is a cron expression for the in-process trigger.
	CronSchedule string `mapstructure:"cron_schedule"`
	// CycleTimeout bounds a single dispatch cycle started by the in-process
	// trigger.
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
}

// ProviderConfig holds delivery gateway configuration.
type ProviderConfig struct {
	Type        string        `mapstructure:"type"` // resend or stdout
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint"`
	FromAddress string        `mapstructure:"from_address"`
	FromName    string        `mapstructure:"from_name"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// ComposeConfig holds AI drafting helper configuration.
type ComposeConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Referer string `mapstructure:"referer"`
	Title   string `mapstructure:"title"`
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix HEARTPOST_ override file values.
// For example, HEARTPOST_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("HEARTPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")

	v.SetDefault("database.pool_min", 2)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.connect_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("dispatch.batch_size", 50)
	v.SetDefault("dispatch.enable_cron", false)
	v.SetDefault("dispatch.cron_schedule", "* * * * *")
	v.SetDefault("dispatch.cycle_timeout", "55s")

	v.SetDefault("provider.type", "stdout")
	v.SetDefault("provider.http_timeout", "30s")

	v.SetDefault("compose.base_url", "https://openrouter.ai/api/v1")
}

func (c *Config) validate() error {
	if c.Dispatch.CronSecret == "" {
		return fmt.Errorf("dispatch.cron_secret must be set (HEARTPOST_DISPATCH_CRON_SECRET)")
	}
	if c.Dispatch.BatchSize <= 0 {
		return fmt.Errorf("dispatch.batch_size must be positive, got %d", c.Dispatch.BatchSize)
	}
	if c.Provider.Type == "resend" && c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key must be set when provider.type is resend")
	}
	if c.Provider.Type == "resend" && c.Provider.FromAddress == "" {
		return fmt.Errorf("provider.from_address must be set when provider.type is resend")
	}
	return nil
}
