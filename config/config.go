package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/database"
	storehousehttp "github.com/sagarc03/storehouse/http"
	"github.com/sagarc03/storehouse/keybackend"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "STOREHOUSE"

type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for storehouse.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Auth      AuthConfig                `mapstructure:"auth"`
	Download  DownloadConfig            `mapstructure:"download"`
	CORS      storehousehttp.CORSConfig `mapstructure:"cors"`
	TLS       TLSConfig                 `mapstructure:"tls"`
	Fetch     FetchConfig               `mapstructure:"fetch"`
	RateLimit RateLimitConfig           `mapstructure:"ratelimit"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Ledger    LedgerConfig              `mapstructure:"ledger"`
	Database  database.Config           `mapstructure:"database"`
	Log       LogConfig                 `mapstructure:"log"`
	Env       string                    `mapstructure:"env" validate:"required,oneof=dev prod"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	UploadPath    string `mapstructure:"upload_path" validate:"required,startswith=/"`
	FetchPath     string `mapstructure:"fetch_path" validate:"required,startswith=/,nefield=UploadPath"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"min=0"`
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// TempPath is where uploads are spooled. Empty means the OS temp dir.
	// Keeping it on the same device as Path makes moves a plain rename.
	TempPath  string `mapstructure:"temp_path"`
	Overwrite bool   `mapstructure:"overwrite"`
}

// AuthConfig holds the shared secret settings.
type AuthConfig struct {
	keybackend.SecretConfig `mapstructure:",squash"`
	Algorithm               string `mapstructure:"algorithm" validate:"required,oneof=sha1 sha256"`
}

// LogValue keeps the secret out of logs.
func (a AuthConfig) LogValue() slog.Value {
	secret := "unset"
	if a.Secret != "" {
		secret = "[redacted]"
	}
	return slog.GroupValue(
		slog.String("secret", secret),
		slog.String("secret_file", a.File),
		slog.String("algorithm", a.Algorithm),
	)
}

// SignatureAlgorithm returns the parsed algorithm.
func (a AuthConfig) SignatureAlgorithm() storehouse.Algorithm {
	alg, err := storehouse.ParseAlgorithm(a.Algorithm)
	if err != nil {
		return storehouse.AlgorithmSHA1
	}
	return alg
}

// DownloadConfig controls the unauthenticated static file server.
type DownloadConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix" validate:"required,startswith=/"`
}

// TLSConfig enables an HTTPS listener next to the plain one.
type TLSConfig struct {
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	CertFile string `mapstructure:"cert_file" validate:"required_with=KeyFile"`
	KeyFile  string `mapstructure:"key_file" validate:"required_with=CertFile"`
}

// Enabled reports whether both cert and key are configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// FetchConfig configures the remote download client.
type FetchConfig struct {
	// Timeout is in seconds. 0 disables the limit.
	Timeout   int    `mapstructure:"timeout" validate:"min=0"`
	UserAgent string `mapstructure:"user_agent"`
}

func (f FetchConfig) TimeoutDuration() time.Duration {
	return time.Duration(f.Timeout) * time.Second
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps" validate:"gt=0"`
	Burst   int     `mapstructure:"burst" validate:"min=1"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

// LedgerConfig turns on recording of commits into the database.
type LedgerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// QueueSize bounds the async event queue feeding the ledger.
	QueueSize int `mapstructure:"queue_size" validate:"min=1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	// Quiet suppresses the per-event log lines.
	Quiet bool `mapstructure:"quiet"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"secret":         "auth.secret",
	"secret-file":    "auth.secret_file",
	"algorithm":      "auth.algorithm",
	"upload-url":     "server.upload_path",
	"fetch-url":      "server.fetch_path",
	"port":           "server.port",
	"max-upload":     "server.max_upload_size",
	"directory":      "storage.path",
	"temp-dir":       "storage.temp_path",
	"allow-download": "download.enabled",
	"prefix":         "download.prefix",
	"cors":           "cors.enabled",
	"cors-origin":    "cors.allowed_origins",
	"ssl-port":       "tls.port",
	"ssl-key":        "tls.key_file",
	"ssl-cert":       "tls.cert_file",
	"quiet":          "log.quiet",
	"log-level":      "log.level",
	"ledger":         "ledger.enabled",
	"db-type":        "database.type",
	"db-dsn":         "database.dsn",
	"metrics":        "metrics.enabled",
	"rate-limit":     "ratelimit.enabled",
}

// bindFlags binds explicitly set CLI flags to viper keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}

		// --nooverwrite is the inverse of storage.overwrite.
		if f.Name == "nooverwrite" {
			if f.Value.String() == "true" {
				v.Set("storage.overwrite", false)
			}
			return
		}

		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}
		_ = v.BindPFlag(viperKey, f)
	})
}

// setDefaults configures default values on the viper instance. Every key
// needs a default for environment overrides to be picked up on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 8888)
	v.SetDefault("server.upload_path", "/upload")
	v.SetDefault("server.fetch_path", "/fetch")
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit

	v.SetDefault("storage.path", "./")
	v.SetDefault("storage.temp_path", "")
	v.SetDefault("storage.overwrite", true)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.secret_file", keybackend.DefaultKeyFile)
	v.SetDefault("auth.algorithm", string(storehouse.AlgorithmSHA1))

	v.SetDefault("download.enabled", false)
	v.SetDefault("download.prefix", "/")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.exposed_headers", []string{})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("tls.port", 4443)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")

	v.SetDefault("fetch.timeout", 300)
	v.SetDefault("fetch.user_agent", "storehouse")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ledger.enabled", false)
	v.SetDefault("ledger.queue_size", 256)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "storehouse.db")
	v.SetDefault("database.tables.ledger", "storehouse_ledger")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.quiet", false)
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("storehouse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Database.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
