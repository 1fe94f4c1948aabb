package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// MobileUserAgent is sent by emulated tabs.
const MobileUserAgent = "Mozilla/5.0 (Linux; Android 11; moto g power (2022)) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Mobile Safari/537.36"

// TabOptions describes the emulated device and navigation limits.
type TabOptions struct {
	Width       int
	Height      int
	ScaleFactor float64
	NavTimeout  time.Duration
}

func (o *TabOptions) defaults() {
	if o.Width <= 0 {
		o.Width = 412
	}
	if o.Height <= 0 {
		o.Height = 823
	}
	if o.ScaleFactor <= 0 {
		o.ScaleFactor = 1.75
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
}

// Tab is a loaded page on an emulated touch device.
type Tab struct {
	Page    *rod.Page
	PageURL string
	hijack  *rod.HijackRouter
}

// OpenTab creates a tab, emulates a mobile touch screen and navigates to
// pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, opts TabOptions) (*Tab, error) {
	opts.defaults()
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	tab := &Tab{Page: page, PageURL: pageURL}

	if err := emulateMobile(page, opts); err != nil {
		tab.Close()
		return nil, err
	}
	if len(mgr.cfg.ResourceBlocking) > 0 {
		tab.hijack = blockResources(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.NavTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return tab, nil
}

func emulateMobile(page *rod.Page, opts TabOptions) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: opts.ScaleFactor,
		Mobile:            true,
	}); err != nil {
		return fmt.Errorf("browser: device metrics: %w", err)
	}
	touchPoints := 5
	if err := (proto.EmulationSetTouchEmulationEnabled{
		Enabled:        true,
		MaxTouchPoints: &touchPoints,
	}).Call(page); err != nil {
		return fmt.Errorf("browser: touch emulation: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: MobileUserAgent,
	}); err != nil {
		return fmt.Errorf("browser: user agent: %w", err)
	}
	return nil
}

// Eval runs a script that returns a string, typically JSON.stringify output.
func (t *Tab) Eval(ctx context.Context, js string) (string, error) {
	res, err := t.Page.Context(ctx).Eval(js)
	if err != nil {
		return "", fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Str(), nil
}

// GetFullDOM serialises the document as outer HTML.
func (t *Tab) GetFullDOM(ctx context.Context) (string, error) {
	return t.Eval(ctx, `() => document.documentElement.outerHTML`)
}

// Close stops request interception and closes the page.
func (t *Tab) Close() error {
	if t.hijack != nil {
		t.hijack.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
