package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadServerConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadServerConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultServerConfig(), *cfg); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	path := filepath.Join(dir, "server_config.json")
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", st.Mode().Perm())
	}

	custom := `{"export":{"scale":3,"page_width":794,"page_height":1123},"image_fetch_timeout":"2s","rate_limit":{"requests":0}}`
	if err := os.WriteFile(path, []byte(custom), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadServerConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Export.Scale != 3 || time.Duration(cfg.ImageFetchTimeout) != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	// Missing keys keep their defaults.
	if cfg.MaxUploadBytes != DefaultServerConfig().MaxUploadBytes {
		t.Errorf("max_upload_bytes = %d", cfg.MaxUploadBytes)
	}
	if got := cfg.ExportDir(dir); got != filepath.Join(dir, "exports") {
		t.Errorf("ExportDir = %q", got)
	}
}

func TestLoadServerConfigInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"bad json":  `{`,
		"bad scale": `{"export":{"scale":0,"page_width":794,"page_height":1123}}`,
		"bad limit": `{"rate_limit":{"requests":5,"window":"0s"}}`,
		"bad dur":   `{"image_fetch_timeout":"soon"}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "server_config.json"), []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadServerConfig(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}
