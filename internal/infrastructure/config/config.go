package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	Collections CollectionsConfig `mapstructure:"collections"`
	Stats       StatsConfig       `mapstructure:"stats"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Badges      []BadgeConfig     `mapstructure:"badges"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CollectionsConfig names the document collections.
type CollectionsConfig struct {
	Progress string `mapstructure:"progress"`
	Profiles string `mapstructure:"profiles"`
	Streaks  string `mapstructure:"streaks"`
}

// StatsConfig tunes statistics computation.
type StatsConfig struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	ProgressCacheTTL time.Duration `mapstructure:"progress_cache_ttl"`
	DayLabels        string        `mapstructure:"day_labels"`
}

// SyncConfig tunes profile replication.
type SyncConfig struct {
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReconcileEnabled  bool          `mapstructure:"reconcile_enabled"`
}

// AuthConfig names the trusted gateway headers carrying the caller identity.
type AuthConfig struct {
	UserHeader  string `mapstructure:"user_header"`
	EmailHeader string `mapstructure:"email_header"`
	NameHeader  string `mapstructure:"name_header"`
}

// BadgeConfig overrides or extends the built-in badges.
type BadgeConfig struct {
	ID        string `mapstructure:"id"`
	Icon      string `mapstructure:"icon"`
	Name      string `mapstructure:"name"`
	Condition string `mapstructure:"condition"`
}

// Load reads configuration from an optional file, a .env file and environment variables.
// An empty configFile searches for config.yaml in . and ./config.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Set default values
	setDefaults()

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.driver", "sqlite3")
	viper.SetDefault("database.path", "quizstats.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "quizstats")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.log_sql", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// Collection defaults
	viper.SetDefault("collections.progress", "userProgress")
	viper.SetDefault("collections.profiles", "users")
	viper.SetDefault("collections.streaks", "userStreaks")

	// Stats defaults
	viper.SetDefault("stats.cache_ttl", 2*time.Minute)
	viper.SetDefault("stats.progress_cache_ttl", 30*time.Second)
	viper.SetDefault("stats.day_labels", "en")

	// Sync defaults
	viper.SetDefault("sync.reconcile_interval", 5*time.Minute)
	viper.SetDefault("sync.reconcile_enabled", true)

	// Auth defaults
	viper.SetDefault("auth.user_header", "X-User-Id")
	viper.SetDefault("auth.email_header", "X-User-Email")
	viper.SetDefault("auth.name_header", "X-User-Name")
}

// DatabaseDriver returns the normalized database/sql driver name.
func (c *Config) DatabaseDriver() (string, error) {
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "postgres", "postgresql", "pgx":
		return "postgres", nil
	case "", "sqlite", "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
}

// DatabaseURL returns the connection string for the configured driver.
func (c *Config) DatabaseURL() (string, error) {
	driver, err := c.DatabaseDriver()
	if err != nil {
		return "", err
	}
	if driver == "sqlite3" {
		path := strings.TrimSpace(c.Database.Path)
		if path == "" {
			return "", errors.New("database.path is required for sqlite3")
		}
		return path, nil
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": []string{c.Database.SSLMode}}.Encode(),
	}
	return u.String(), nil
}

// ListenAddr is the HTTP listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}
