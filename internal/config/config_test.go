package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("TEST_TABMAP_BUCKET", "reports")
	path := writeFile(t, "tabmap.yaml", `
preview:
  max_rows: 50
storage:
  type: s3
  s3:
    region: eu-west-1
    bucket: ${TEST_TABMAP_BUCKET}
    endpoint: ${TEST_TABMAP_UNSET:-http://localhost:9000}
`)
	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Preview.MaxRows != 50 {
		t.Errorf("MaxRows = %d, want 50", cfg.Preview.MaxRows)
	}
	if cfg.Preview.Workers != 4 {
		t.Errorf("Workers = %d, want default 4", cfg.Preview.Workers)
	}
	if cfg.Storage.S3.Bucket != "reports" {
		t.Errorf("Bucket = %q, want reports", cfg.Storage.S3.Bucket)
	}
	if cfg.Storage.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("Endpoint = %q, want default from reference", cfg.Storage.S3.Endpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "tabmap.json", `{"log": {"level": "debug", "format": "json"}}`)
	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if cfg.Preview.MaxRows != 1000 {
		t.Errorf("MaxRows = %d, want default 1000", cfg.Preview.MaxRows)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := writeFile(t, "bad.yaml", "preview: [unclosed")
	if _, err := Load(NewViper(), path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TABMAP_PREVIEW_MAX_ROWS", "25")
	t.Setenv("TABMAP_STORAGE_TYPE", "s3")
	t.Setenv("TABMAP_STORAGE_S3_REGION", "us-east-1")
	t.Setenv("TABMAP_STORAGE_S3_USE_SSL", "true")
	t.Setenv("TABMAP_LOG_LEVEL", "warn")
	path := writeFile(t, "tabmap.yaml", "preview:\n  max_rows: 50\nlog:\n  level: debug\n")

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	want.Preview.MaxRows = 25
	want.Storage.Type = "s3"
	want.Storage.S3.Region = "us-east-1"
	want.Storage.S3.UseSSL = true
	want.Log.Level = "warn"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("TABMAP_PREVIEW_WORKERS", "many")
	if _, err := Load(NewViper(), path); err == nil {
		t.Error("expected error for non numeric workers")
	}
}

func TestLoad_Search(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(filepath.Join(dir, ".tabmap.yaml"), []byte("log:\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %q, want json from .tabmap.yaml", cfg.Log.Format)
	}

	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load without a config file failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"negative rows", func(c *Config) { c.Preview.MaxRows = -1 }, true},
		{"unknown storage", func(c *Config) { c.Storage.Type = "ftp" }, true},
		{"s3 without region", func(c *Config) { c.Storage.Type = "s3" }, true},
		{"s3 with endpoint", func(c *Config) { c.Storage.Type = "s3"; c.Storage.S3.Endpoint = "http://minio:9000" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Metrics.Textfile = "/tmp/tabmap.prom"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	back, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *back != *cfg {
		t.Errorf("round trip mismatch: %+v vs %+v", back, cfg)
	}
}
