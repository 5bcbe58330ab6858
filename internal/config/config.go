package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig  `mapstructure:"server"`
	Storage     StorageConfig `mapstructure:"storage"`
	Auth        AuthConfig    `mapstructure:"auth"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	TLS         TLSConfig     `mapstructure:"tls"`
	Janitor     JanitorConfig `mapstructure:"janitor"`
	Logging     LoggingConfig `mapstructure:"logging"`
	LogLevel    string        `mapstructure:"log_level"`
	Environment string        `mapstructure:"environment"` // development, production
}

// JanitorConfig controls the background lifecycle/multipart-GC loop.
type JanitorConfig struct {
	Interval            int `mapstructure:"interval"`              // seconds between sweeps
	MultipartAbortAfter int `mapstructure:"multipart_abort_after"` // seconds; abort uploads staged longer than this
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

type StorageConfig struct {
	DataDir           string `mapstructure:"data_dir"`
	MaxObjectSize     int64  `mapstructure:"max_object_size"`
	MaxBuckets        int    `mapstructure:"max_buckets"`
	EnableCompression bool   `mapstructure:"enable_compression"`
	StorageBackend    string `mapstructure:"storage_backend"` // flatfile, packed
}

type AuthConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	AccessKey     string `mapstructure:"access_key"`
	SessionExpiry int    `mapstructure:"session_expiry"` // in hours

	// TestPrincipalBypass, when true, authorizes the literal "test"
	// principal unconditionally. Defaults to false; only meant for
	// integration-test harnesses, never set in production config.
	TestPrincipalBypass bool `mapstructure:"test_principal_bypass"`
	// AdminBypassUnauthenticated, when true, authorizes anonymous
	// (unauthenticated) requests unconditionally. Defaults to false.
	AdminBypassUnauthenticated bool `mapstructure:"admin_bypass_unauthenticated"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`      // debug, info, warn, error
	Format     string `mapstructure:"format"`     // json, text
	Output     string `mapstructure:"output"`     // stdout, file
	File       string `mapstructure:"file"`       // log file path
	MaxSize    int    `mapstructure:"max_size"`   // max size in MB before rotation
	MaxBackups int    `mapstructure:"max_backups"` // number of backup files
	MaxAge     int    `mapstructure:"max_age"`     // days to keep backups
	Compress   bool   `mapstructure:"compress"`   // compress rotated logs
}

func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 60)

	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.max_object_size", 5*1024*1024*1024) // 5GB
	v.SetDefault("storage.max_buckets", 100)
	v.SetDefault("storage.enable_compression", false)
	v.SetDefault("storage.storage_backend", "flatfile")

	v.SetDefault("auth.secret_key", "")
	v.SetDefault("auth.access_key", "")
	v.SetDefault("auth.session_expiry", 24)
	v.SetDefault("auth.test_principal_bypass", false)
	v.SetDefault("auth.admin_bypass_unauthenticated", false)

	v.SetDefault("janitor.interval", 300)
	v.SetDefault("janitor.multipart_abort_after", 86400)

	v.SetDefault("environment", "production")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")

	v.SetDefault("log_level", "info")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)

	// If config path provided, read from it
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// Try to find config in common locations
		v.SetConfigName("openendpoint")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/openendpoint")
		v.AddConfigPath("/etc/openendpoint")

		// Allow environment variables
		v.SetEnvPrefix("OPENEP")
		v.AutomaticEnv()

		// Ignore error if no config file found
		v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = os.Getenv("OPENEP_SECRET_KEY")
	}
	if cfg.Auth.AccessKey == "" {
		cfg.Auth.AccessKey = os.Getenv("OPENEP_ACCESS_KEY")
	}

	return &cfg, nil
}
