package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{envPort, envEndpoint, envLocalFilesDir, envLocalURLPrefix, envUpdateKey, envMetricsEnabled} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Endpoint != defaultEndpoint {
		t.Fatalf("expected default endpoint %s, got %s", defaultEndpoint, cfg.Endpoint)
	}
	if cfg.LocalURLPrefix != defaultLocalURLPrefix {
		t.Fatalf("expected default url prefix, got %s", cfg.LocalURLPrefix)
	}
	if filepath.Base(cfg.LocalFilesDir) != "local" {
		t.Fatalf("expected cwd-relative local dir, got %s", cfg.LocalFilesDir)
	}
	if cfg.UpdateKey != "" {
		t.Fatalf("expected empty update key, got %s", cfg.UpdateKey)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("metrics must default to disabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envPort, "9000")
	t.Setenv(envEndpoint, "/producer")
	t.Setenv(envLocalFilesDir, "/srv/hub/local")
	t.Setenv(envLocalURLPrefix, "/assets")
	t.Setenv(envUpdateKey, "s3cret")
	t.Setenv(envMetricsEnabled, "true")
	t.Setenv(envMetricsPort, "9999")

	cfg := Load()
	if cfg.Port != "9000" || cfg.Endpoint != "/producer" {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if cfg.LocalFilesDir != "/srv/hub/local" || cfg.LocalURLPrefix != "/assets" {
		t.Fatalf("unexpected local files config: %+v", cfg)
	}
	if cfg.UpdateKey != "s3cret" {
		t.Fatalf("unexpected update key: %s", cfg.UpdateKey)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != "9999" {
		t.Fatalf("unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestBoolEnvParsing(t *testing.T) {
	tests := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"1", false, true},
		{"yes", false, true},
		{"TRUE", false, true},
		{"0", true, false},
		{"no", true, false},
		{"garbage", true, true},
	}
	for _, tc := range tests {
		t.Setenv("TEST_BOOL", tc.raw)
		if got := boolEnvOrDefault("TEST_BOOL", tc.def); got != tc.want {
			t.Fatalf("%q default %v: got %v want %v", tc.raw, tc.def, got, tc.want)
		}
	}
}
