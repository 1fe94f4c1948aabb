// Package collect drives a mobile-emulated Chrome to produce the artifacts
// the tap-target audit consumes.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/taptarget/collect/internal/browser"
	"github.com/hazyhaar/taptarget/safeurl"
	"github.com/hazyhaar/taptarget/tapaudit"
)

// ErrNoBrowser is returned by Collect before Start or after Close.
var ErrNoBrowser = errors.New("collect: browser not started")

// Config configures a Collector.
type Config struct {
	// RemoteURL is the DevTools URL of an external Chrome. Empty launches one.
	RemoteURL        string
	Stealth          bool
	ResourceBlocking []string

	ViewportWidth  int
	ViewportHeight int
	ScaleFactor    float64
	NavTimeout     time.Duration

	// AllowPrivate permits auditing loopback and private hosts.
	AllowPrivate bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Collector loads pages and gathers their tap targets.
type Collector struct {
	cfg     Config
	mgr     *browser.Manager
	started atomic.Bool
}

// New creates a Collector. Call Start before Collect.
func New(cfg Config) *Collector {
	cfg.defaults()
	return &Collector{
		cfg: cfg,
		mgr: browser.NewManager(browser.Config{
			RemoteURL:        cfg.RemoteURL,
			Stealth:          cfg.Stealth,
			ResourceBlocking: cfg.ResourceBlocking,
			Logger:           cfg.Logger,
		}),
	}
}

// Start launches or connects to Chrome.
func (c *Collector) Start(ctx context.Context) error {
	if _, err := c.mgr.Start(ctx); err != nil {
		return fmt.Errorf("collect: start: %w", err)
	}
	c.started.Store(true)
	return nil
}

// Close shuts the browser down.
func (c *Collector) Close() error {
	c.started.Store(false)
	return c.mgr.Close()
}

// Collect loads pageURL on the emulated device and returns its artifacts.
func (c *Collector) Collect(ctx context.Context, pageURL string) (*tapaudit.Artifacts, error) {
	if !c.started.Load() || c.mgr.Browser() == nil {
		return nil, ErrNoBrowser
	}
	if _, err := safeurl.ValidateURL(pageURL, safeurl.Options{AllowPrivate: c.cfg.AllowPrivate}); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	start := time.Now()
	tab, err := browser.OpenTab(ctx, c.mgr, pageURL, browser.TabOptions{
		Width:       c.cfg.ViewportWidth,
		Height:      c.cfg.ViewportHeight,
		ScaleFactor: c.cfg.ScaleFactor,
		NavTimeout:  c.cfg.NavTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	defer tab.Close()

	dom, err := tab.GetFullDOM(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	vp, err := ParseViewport(strings.NewReader(dom))
	if err != nil {
		return nil, fmt.Errorf("collect: parse viewport: %w", err)
	}

	raw, err := tab.Eval(ctx, GatherScript)
	if err != nil {
		return nil, fmt.Errorf("collect: gather: %w", err)
	}
	targets, err := DecodeTargets([]byte(raw))
	if err != nil {
		return nil, err
	}

	c.cfg.Logger.Info("collect: page gathered",
		"url", pageURL,
		"targets", len(targets),
		"viewport", vp.Content,
		"duration_ms", time.Since(start).Milliseconds())

	return &tapaudit.Artifacts{
		ViewportOptimized: vp.MobileOptimized(),
		Targets:           targets,
	}, nil
}
