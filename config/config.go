// Package config loads the batchctl configuration from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/oauth2/clientcredentials"
	"gopkg.in/yaml.v3"

	"github.com/smartcontractkit/batchops/batch"
	"github.com/smartcontractkit/batchops/pkg/logger"
	"github.com/smartcontractkit/batchops/remote"
)

// RetryConfig is the per-operation retry policy of a batch.
type RetryConfig struct {
	MaxAttempts uint          `mapstructure:"max_attempts" yaml:"max_attempts"` // Total attempts per dispatch. 1 disables retries.
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`               // Fixed wait between attempts, e.g. 500ms
}

// BatchConfig is the configuration of a batch run.
type BatchConfig struct {
	MaxConcurrency  int         `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	ContinueOnError bool        `mapstructure:"continue_on_error" yaml:"continue_on_error"`
	EnableRollback  bool        `mapstructure:"enable_rollback" yaml:"enable_rollback"`
	DetectCycles    bool        `mapstructure:"detect_cycles" yaml:"detect_cycles"`
	Retry           RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// Options converts the configuration into executor options.
func (c BatchConfig) Options() []batch.Option {
	return []batch.Option{
		batch.WithMaxConcurrency(c.MaxConcurrency),
		batch.WithContinueOnError(c.ContinueOnError),
		batch.WithRollback(c.EnableRollback),
		batch.WithCycleDetection(c.DetectCycles),
		batch.WithRetry(batch.RetryPolicy{
			MaxAttempts: c.Retry.MaxAttempts,
			Delay:       c.Retry.Delay,
		}),
	}
}

// AuthConfig is the OAuth2 client credentials configuration of the remote service.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type AuthConfig struct {
	TokenURL     string   `mapstructure:"token_url" yaml:"token_url"`
	ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"` // Secret
	Scopes       []string `mapstructure:"scopes" yaml:"scopes,omitempty"`
}

// RemoteConfig is the configuration of the remote service verb operations are sent to.
type RemoteConfig struct {
	BaseURL string            `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Auth    *AuthConfig       `mapstructure:"auth" yaml:"auth,omitempty"`
}

// NewClient creates a remote client from the configuration.
func (c RemoteConfig) NewClient(lggr logger.Logger) (*remote.Client, error) {
	opts := []remote.Option{
		remote.WithTimeout(c.Timeout),
		remote.WithHeaders(c.Headers),
		remote.WithLogger(lggr),
	}
	if c.Auth != nil {
		opts = append(opts, remote.WithClientCredentials(clientcredentials.Config{
			ClientID:     c.Auth.ClientID,
			ClientSecret: c.Auth.ClientSecret,
			TokenURL:     c.Auth.TokenURL,
			Scopes:       c.Auth.Scopes,
		}))
	}

	return remote.NewClient(c.BaseURL, opts...)
}

// LogConfig is the logger configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// NewLogger creates a logger from the configuration.
func (c LogConfig) NewLogger() (logger.Logger, error) {
	return logger.Config{Level: c.Level}.New()
}

// Config wraps the entire batchctl configuration.
type Config struct {
	Batch  BatchConfig  `mapstructure:"batch" yaml:"batch"`
	Remote RemoteConfig `mapstructure:"remote" yaml:"remote"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// Redacted returns a copy of the config with secrets masked, safe to print.
func (c Config) Redacted() Config {
	if c.Remote.Auth != nil {
		auth := *c.Remote.Auth
		if auth.ClientSecret != "" {
			auth.ClientSecret = "******"
		}
		c.Remote.Auth = &auth
	}

	return c
}

// Write encodes the config as YAML to w.
func Write(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return enc.Close()
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
// The file format is picked from its extension: yaml, yml, toml or json.
func Load(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	// If the config file exists, we continue to read it, otherwise we fallback to using
	// environment variables
	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := newViper()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// LoadFile loads the config from a file.
func LoadFile(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// Default returns the config used when nothing is set.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// Defaults are static, they always decode.
		panic(err)
	}

	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

var (
	defaults = map[string]any{
		"batch.max_concurrency":    batch.DefaultMaxConcurrency,
		"batch.continue_on_error":  true,
		"batch.enable_rollback":    false,
		"batch.detect_cycles":      false,
		"batch.retry.max_attempts": 1,
		"batch.retry.delay":        "0s",
		"remote.timeout":           remote.DefaultTimeout.String(),
		"log.level":                "info",
	}

	// envBindings maps each config key to the environment variables that can provide its
	// value, checked in order.
	envBindings = map[string][]string{
		"batch.max_concurrency":     {"BATCH_MAX_CONCURRENCY"},
		"batch.continue_on_error":   {"BATCH_CONTINUE_ON_ERROR"},
		"batch.enable_rollback":     {"BATCH_ENABLE_ROLLBACK"},
		"batch.detect_cycles":       {"BATCH_DETECT_CYCLES"},
		"batch.retry.max_attempts":  {"BATCH_RETRY_MAX_ATTEMPTS"},
		"batch.retry.delay":         {"BATCH_RETRY_DELAY"},
		"remote.base_url":           {"REMOTE_BASE_URL"},
		"remote.timeout":            {"REMOTE_TIMEOUT"},
		"remote.auth.token_url":     {"REMOTE_AUTH_TOKEN_URL"},
		"remote.auth.client_id":     {"REMOTE_AUTH_CLIENT_ID"},
		"remote.auth.client_secret": {"REMOTE_AUTH_CLIENT_SECRET"},
		"remote.auth.scopes":        {"REMOTE_AUTH_SCOPES"},
		"log.level":                 {"LOG_LEVEL"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// Prepend the env key to the start of the arguments
		inputs := slices.Insert(envs, 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
