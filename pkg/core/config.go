// Package core owns the project folder and the settings every command
// reads from config.json, the environment and flags.
package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/blackcoderx/postsync/pkg/environment"
	"github.com/blackcoderx/postsync/pkg/postman"
	"github.com/blackcoderx/postsync/pkg/storage"
	"github.com/blackcoderx/postsync/pkg/syncer"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Defaults for keys missing from config.json.
const (
	DefaultAPIBaseURL     = postman.DefaultBaseURL
	DefaultSummaryPath    = syncer.DefaultSummaryPath
	DefaultRequestTimeout = postman.DefaultTimeout
	DefaultThrottleWait   = postman.DefaultThrottleWait
	DefaultMaxRetries     = postman.DefaultMaxRetries
)

// EnvPrefix prefixes environment overrides, e.g. POSTSYNC_LOG_LEVEL.
const EnvPrefix = "POSTSYNC"

// Settings are the resolved configuration values.
type Settings struct {
	APIKey            string        `mapstructure:"api_key"`
	WorkspaceID       string        `mapstructure:"workspace_id"`
	APIBaseURL        string        `mapstructure:"api_base_url"`
	SummaryPath       string        `mapstructure:"summary_path"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ThrottleWait      time.Duration `mapstructure:"throttle_wait"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`

	Environments []environment.Target `mapstructure:"environments"`
}

// Configure points v at the config file and environment. cfgFile overrides
// the default .postsync/config.json. A missing config file is not an error.
func Configure(v *viper.Viper, fs afero.Fs, cfgFile string) error {
	v.SetFs(fs)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(FolderName)
		v.SetConfigType("json")
		v.SetConfigName("config")
	}

	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("summary_path", DefaultSummaryPath)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("throttle_wait", DefaultThrottleWait)
	v.SetDefault("max_retries", DefaultMaxRetries)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", "POSTMAN_API_KEY")
	_ = v.BindEnv("workspace_id", "POSTMAN_WORKSPACE_ID")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes the settings held by v. Target URLs may reference process
// environment variables as {{env:NAME}}. Without an environments key the
// built-in targets are used.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if len(s.Environments) == 0 {
		s.Environments = environment.DefaultTargets
		return s, nil
	}

	seen := make(map[string]bool)
	for i, t := range s.Environments {
		if t.Name == "" {
			return Settings{}, fmt.Errorf("environments[%d]: name is required", i)
		}
		if seen[t.Name] {
			return Settings{}, fmt.Errorf("environments[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = true
		s.Environments[i].BaseURL = storage.ExpandEnvRefs(t.BaseURL)
		s.Environments[i].AuthURL = storage.ExpandEnvRefs(t.AuthURL)
	}
	return s, nil
}

// ClientOptions maps settings onto postman client options.
func (s Settings) ClientOptions(preview bool) postman.Options {
	return postman.Options{
		BaseURL:           s.APIBaseURL,
		APIKey:            s.APIKey,
		Preview:           preview,
		Timeout:           s.RequestTimeout,
		ThrottleWait:      s.ThrottleWait,
		MaxRetries:        s.MaxRetries,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}
