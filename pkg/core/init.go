package core

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/blackcoderx/postsync/pkg/environment"
	"github.com/spf13/afero"
)

// FolderName is the project folder holding config.json.
const FolderName = ".postsync"

// ConfigPath is the default config file location.
var ConfigPath = filepath.Join(FolderName, "config.json")

// InitializeFolder creates the .postsync directory with a default
// config.json if it does not exist yet. It reports whether anything was
// created; an existing folder is left alone.
func InitializeFolder(fs afero.Fs, out io.Writer) (bool, error) {
	exists, err := afero.DirExists(fs, FolderName)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", FolderName, err)
	}
	if exists {
		return false, nil
	}

	fmt.Fprintf(out, "Initializing %s folder...\n", FolderName)
	if err := fs.Mkdir(FolderName, 0755); err != nil {
		return false, fmt.Errorf("failed to create %s folder: %w", FolderName, err)
	}
	if err := createDefaultConfig(fs); err != nil {
		return false, err
	}

	fmt.Fprintf(out, "%s written. Set POSTMAN_API_KEY in your environment or .env file.\n", ConfigPath)
	return true, nil
}

// defaultFile is the shape of a fresh config.json. Durations are written as
// strings, which viper decodes back into time.Duration.
type defaultFile struct {
	APIBaseURL        string               `json:"api_base_url"`
	SummaryPath       string               `json:"summary_path"`
	RequestTimeout    string               `json:"request_timeout"`
	ThrottleWait      string               `json:"throttle_wait"`
	MaxRetries        int                  `json:"max_retries"`
	RequestsPerSecond float64              `json:"requests_per_second"`
	LogLevel          string               `json:"log_level"`
	LogFormat         string               `json:"log_format"`
	Environments      []environment.Target `json:"environments"`
}

func createDefaultConfig(fs afero.Fs) error {
	config := defaultFile{
		APIBaseURL:        DefaultAPIBaseURL,
		SummaryPath:       DefaultSummaryPath,
		RequestTimeout:    DefaultRequestTimeout.String(),
		ThrottleWait:      DefaultThrottleWait.String(),
		MaxRetries:        DefaultMaxRetries,
		RequestsPerSecond: 0,
		LogLevel:          "info",
		LogFormat:         "console",
		Environments:      environment.DefaultTargets,
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(fs, ConfigPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
