package scout

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.BaseURL == "" || cfg.SearchPath != "/search_movies" {
		t.Errorf("site defaults missing: %+v", cfg)
	}
	if cfg.ResourceProfile != "light" {
		t.Errorf("resource profile = %q", cfg.ResourceProfile)
	}
	if cfg.ListingTimeout != 15*time.Second || cfg.StreamTimeout != 8*time.Second {
		t.Errorf("timeouts: listing=%v stream=%v", cfg.ListingTimeout, cfg.StreamTimeout)
	}
	if cfg.SettleDelay != 800*time.Millisecond {
		t.Errorf("light profile settle delay = %v", cfg.SettleDelay)
	}
	if cfg.StreamConcurrency != 3 || cfg.BrowseLinkLimit != 50 {
		t.Errorf("limits: concurrency=%d browse=%d", cfg.StreamConcurrency, cfg.BrowseLinkLimit)
	}
	if cfg.MaxCategoryPages != 5 || cfg.CategoryResultTarget != 10 {
		t.Errorf("category bounds: pages=%d target=%d", cfg.MaxCategoryPages, cfg.CategoryResultTarget)
	}
}

func TestConfigFullProfileSettleDelay(t *testing.T) {
	cfg := Config{ResourceProfile: "full"}
	cfg.applyDefaults()
	if cfg.SettleDelay != 1500*time.Millisecond {
		t.Errorf("full profile settle delay = %v", cfg.SettleDelay)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
base_url: https://example.test
resource_profile: full
resolve_streams: true
listing_timeout: 20s
stream_concurrency: 5
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != "https://example.test" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if !cfg.ResolveStreams || cfg.StreamConcurrency != 5 {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if cfg.ListingTimeout != 20*time.Second {
		t.Errorf("listing timeout = %v", cfg.ListingTimeout)
	}
	// Unset fields still get defaults.
	if cfg.SearchPath != "/search_movies" {
		t.Errorf("search path = %q", cfg.SearchPath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}
