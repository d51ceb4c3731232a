// Manages server configuration stored in server_config.json.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// Export controls the generated PDF.
	Export ExportConfig `json:"export"`

	// RateLimit throttles export requests per client.
	RateLimit RateLimit `json:"rate_limit"`

	// MaxUploadBytes limits the size of an uploaded image asset.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// ImageFetchTimeout bounds fetching a linked image during rendering.
	ImageFetchTimeout Duration `json:"image_fetch_timeout"`

	// Scheduler configures scheduled exports.
	Scheduler SchedulerConfig `json:"scheduler"`
}

// ExportConfig defines the page and raster of an export.
type ExportConfig struct {
	// Scale is the supersampling factor of the page raster.
	Scale int `json:"scale"`
	// PageWidth and PageHeight are in PDF points, one per CSS pixel.
	PageWidth  int `json:"page_width"`
	PageHeight int `json:"page_height"`
}

// Validate checks the export settings.
func (e *ExportConfig) Validate() error {
	if e.Scale < 1 || e.Scale > 4 {
		return errors.New("scale must be between 1 and 4")
	}
	if e.PageWidth <= 0 || e.PageHeight <= 0 {
		return errors.New("page_width and page_height must be positive")
	}
	return nil
}

// RateLimit defines the export rate limit: Requests per Window, with Burst
// extra requests allowed at once. 0 requests means unlimited.
type RateLimit struct {
	Requests int      `json:"requests"`
	Window   Duration `json:"window"`
	Burst    int      `json:"burst"`
}

// Validate checks that rate limit values are usable.
func (r *RateLimit) Validate() error {
	if r.Requests < 0 {
		return errors.New("requests must be non-negative")
	}
	if r.Requests > 0 && r.Window <= 0 {
		return errors.New("window must be positive")
	}
	if r.Burst < 0 {
		return errors.New("burst must be non-negative")
	}
	return nil
}

// SchedulerConfig configures scheduled exports.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// ExportDir is where scheduled exports are written. Relative paths are
	// resolved against the data directory.
	ExportDir string `json:"export_dir"`
}

// Duration is a time.Duration encoded as a Go duration string ("30s").
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// DefaultServerConfig returns the configuration written on first start.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Export:            ExportConfig{Scale: 2, PageWidth: 794, PageHeight: 1123},
		RateLimit:         RateLimit{Requests: 30, Window: Duration(time.Minute), Burst: 5},
		MaxUploadBytes:    10 * 1024 * 1024, // 10 MiB
		ImageFetchTimeout: Duration(10 * time.Second),
		Scheduler:         SchedulerConfig{Enabled: true, ExportDir: "exports"},
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.ImageFetchTimeout <= 0 {
		return errors.New("image_fetch_timeout must be positive")
	}
	if c.Scheduler.Enabled && c.Scheduler.ExportDir == "" {
		return errors.New("scheduler: export_dir is required")
	}
	return nil
}

// LoadServerConfig loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, "server_config.json")

	cfg := DefaultServerConfig()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read server_config.json: %w", err)
		}
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server_config.json: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server_config.json: %w", err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "server_config.json"), data, 0o600); err != nil {
		return fmt.Errorf("failed to write server_config.json: %w", err)
	}
	return nil
}

// ExportDir returns the absolute scheduled export directory.
func (c *ServerConfig) ExportDir(dataDir string) string {
	if filepath.IsAbs(c.Scheduler.ExportDir) {
		return c.Scheduler.ExportDir
	}
	return filepath.Join(dataDir, c.Scheduler.ExportDir)
}
