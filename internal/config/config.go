package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Grid     GridConfig
	Jobs     JobsConfig
	Logging  LoggingConfig
}

type AppConfig struct {
	Name        string
	Environment string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// GridConfig holds tuning for the estimate grid engine
type GridConfig struct {
	// ValidationDebounceMs is the trailing-edge delay before a validation run
	ValidationDebounceMs int
	// AutoSaveDebounceMs is the trailing-edge delay before an auto-save
	AutoSaveDebounceMs int
}

// JobsConfig holds background job scheduling configuration. The embedding
// application wires these settings into a jobs.Scheduler; see the jobs
// package documentation for the expected composition.
type JobsConfig struct {
	// Enabled controls whether the background scheduler is started
	Enabled bool
	// FlushCron is the cron expression for the dirty-session flush job
	FlushCron string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ValidationDebounce returns the validation debounce delay as duration
func (g *GridConfig) ValidationDebounce() time.Duration {
	return time.Duration(g.ValidationDebounceMs) * time.Millisecond
}

// AutoSaveDebounce returns the auto-save debounce delay as duration
func (g *GridConfig) AutoSaveDebounce() time.Duration {
	return time.Duration(g.AutoSaveDebounceMs) * time.Millisecond
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	// Read from config file
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Estimate Grid")
	v.SetDefault("app.environment", "development")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "estimates")
	v.SetDefault("database.user", "estimate_user")
	v.SetDefault("database.password", "estimate_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Grid defaults: validation trails each recalculation closely,
	// auto-save waits a little longer so rapid edits coalesce
	v.SetDefault("grid.validationDebounceMs", 150)
	v.SetDefault("grid.autoSaveDebounceMs", 500)

	// Jobs defaults
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.flushCron", "@every 30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
