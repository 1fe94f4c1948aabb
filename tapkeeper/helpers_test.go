package tapkeeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/taptarget/geom"
	"github.com/hazyhaar/taptarget/report"
	"github.com/hazyhaar/taptarget/tapaudit"
)

// recorder collects delivered reports.
type recorder struct {
	mu      sync.Mutex
	reports []report.Report
}

func (r *recorder) Send(_ context.Context, rep report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

// fakeCollector serves canned artifacts by URL.
type fakeCollector map[string]*tapaudit.Artifacts

func (f fakeCollector) Collect(_ context.Context, pageURL string) (*tapaudit.Artifacts, error) {
	a, ok := f[pageURL]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return a, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKeeper(t *testing.T, cfg *Config) (*Keeper, *recorder) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.DBPath = ":memory:"
	rec := &recorder{}
	k, err := New(cfg, quietLogger(), rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { k.Close() })
	return k, rec
}

func target(selector, href string, r geom.Rect) tapaudit.Target {
	return tapaudit.Target{
		ClientRects: []geom.Rect{r},
		Href:        href,
		Node:        tapaudit.Node{Selector: selector},
	}
}

// overlapping has two 20x20 links side by side: both fail.
func overlapping() tapaudit.Artifacts {
	return tapaudit.Artifacts{
		ViewportOptimized: true,
		Targets: []tapaudit.Target{
			target("a.one", "https://example.com/1", geom.Rect{Left: 0, Top: 0, Width: 20, Height: 20}),
			target("a.two", "https://example.com/2", geom.Rect{Left: 20, Top: 0, Width: 20, Height: 20}),
		},
	}
}

// roomy has two well-separated large buttons.
func roomy() tapaudit.Artifacts {
	return tapaudit.Artifacts{
		ViewportOptimized: true,
		Targets: []tapaudit.Target{
			target("button.a", "", geom.Rect{Left: 0, Top: 0, Width: 100, Height: 50}),
			target("button.b", "", geom.Rect{Left: 0, Top: 200, Width: 100, Height: 50}),
		},
	}
}
