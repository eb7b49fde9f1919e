package scout

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls the search pipeline. One orchestrator serves every
// optimisation level through these options instead of per-level
// implementations.
type Config struct {
	// BaseURL is the target listing site.
	BaseURL string `yaml:"base_url"`

	// SearchPath is the site search endpoint; the query is appended as
	// the "s" parameter.
	SearchPath string `yaml:"search_path"`

	// ResourceProfile selects page emulation: "light" (no scripts,
	// aggressive blocking) or "full".
	ResourceProfile string `yaml:"resource_profile"`

	// ResolveStreams loads each candidate's detail page to find a
	// playable stream URL.
	ResolveStreams bool `yaml:"resolve_streams"`

	// StreamConcurrency bounds concurrent detail-page loads.
	StreamConcurrency int `yaml:"stream_concurrency"`

	ListingTimeout  time.Duration `yaml:"listing_timeout"`
	CategoryTimeout time.Duration `yaml:"category_timeout"`
	StreamTimeout   time.Duration `yaml:"stream_timeout"`
	SettleDelay     time.Duration `yaml:"settle_delay"`

	// BrowseLinkLimit caps links examined on the homepage strategy.
	BrowseLinkLimit int `yaml:"browse_link_limit"`

	// MaxCategoryPages caps category pages visited by the category
	// strategy; CategoryResultTarget stops it once reached.
	MaxCategoryPages     int `yaml:"max_category_pages"`
	CategoryResultTarget int `yaml:"category_result_target"`

	// RemoteBrowserURL connects to an external Chrome instead of
	// launching one.
	RemoteBrowserURL string `yaml:"remote_browser_url"`

	UserAgents     []string `yaml:"user_agents"`
	BlockedDomains []string `yaml:"blocked_domains"`

	BrowserMemoryLimit     int64         `yaml:"browser_memory_limit"`
	BrowserRecycleInterval time.Duration `yaml:"browser_recycle_interval"`
}

// LoadConfig reads a YAML configuration file and applies defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("scout: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("scout: parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.5movierulz.irish"
	}
	if c.SearchPath == "" {
		c.SearchPath = "/search_movies"
	}
	if c.ResourceProfile == "" {
		c.ResourceProfile = "light"
	}
	if c.StreamConcurrency <= 0 {
		c.StreamConcurrency = 3
	}
	if c.ListingTimeout <= 0 {
		c.ListingTimeout = 15 * time.Second
	}
	if c.CategoryTimeout <= 0 {
		c.CategoryTimeout = 10 * time.Second
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 8 * time.Second
	}
	if c.SettleDelay <= 0 {
		if c.ResourceProfile == "light" {
			c.SettleDelay = 800 * time.Millisecond
		} else {
			c.SettleDelay = 1500 * time.Millisecond
		}
	}
	if c.BrowseLinkLimit <= 0 {
		c.BrowseLinkLimit = 50
	}
	if c.MaxCategoryPages <= 0 {
		c.MaxCategoryPages = 5
	}
	if c.CategoryResultTarget <= 0 {
		c.CategoryResultTarget = 10
	}
}
