package tapkeeper

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/taptarget/tapaudit"
)

// Config is the tapkeeper configuration, usually read from YAML.
type Config struct {
	DBPath  string          `yaml:"db_path"`
	Audit   tapaudit.Config `yaml:"audit"`
	Browser BrowserConfig   `yaml:"browser"`
	Pages   []PageConfig    `yaml:"pages"`
	Sinks   []SinkConfig    `yaml:"sinks"`
	Server  ServerConfig    `yaml:"server"`

	// Retention drops runs older than this on Prune. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// BrowserConfig controls the Chrome used by AuditURL.
type BrowserConfig struct {
	Remote           string         `yaml:"remote"`
	Stealth          string         `yaml:"stealth"` // headless | off
	ResourceBlocking []string       `yaml:"resource_blocking"`
	Viewport         ViewportConfig `yaml:"viewport"`
	NavTimeout       time.Duration  `yaml:"nav_timeout"`

	// AllowPrivate permits auditing loopback and private hosts.
	AllowPrivate bool `yaml:"allow_private"`
}

// ViewportConfig is the emulated device screen.
type ViewportConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float64 `yaml:"scale"`
}

// PageConfig is a page audited by AuditPages.
type PageConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// SinkConfig defines a report backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | markdown
	URL  string `yaml:"url"`  // webhook
	Path string `yaml:"path"` // markdown directory; empty writes to stdout
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RoutesPoll is how often the connectivity routes table is checked.
	RoutesPoll time.Duration `yaml:"routes_poll"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tapkeeper: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("tapkeeper: parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "tapaudit.db"
	}
	if c.Audit.FingerSize <= 0 {
		c.Audit.FingerSize = tapaudit.DefaultFingerSize
	}
	if c.Audit.MaxOverlapRatio <= 0 {
		c.Audit.MaxOverlapRatio = tapaudit.DefaultMaxOverlapRatio
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.Viewport.Width <= 0 {
		c.Browser.Viewport.Width = 412
	}
	if c.Browser.Viewport.Height <= 0 {
		c.Browser.Viewport.Height = 823
	}
	if c.Browser.Viewport.Scale <= 0 {
		c.Browser.Viewport.Scale = 1.75
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Server.RoutesPoll <= 0 {
		c.Server.RoutesPoll = time.Second
	}
	for i := range c.Pages {
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = c.Pages[i].URL
		}
	}
}

func (c *Config) validate() error {
	for i, p := range c.Pages {
		if p.URL == "" {
			return fmt.Errorf("tapkeeper: pages[%d]: url is required", i)
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout", "markdown":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("tapkeeper: sinks[%d]: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("tapkeeper: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
