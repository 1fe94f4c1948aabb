// Package tapkeeper runs the tap-target audit as a service: it collects or
// receives page artifacts, scores them, stores every run in SQLite and
// fans reports out to sinks.
//
// Usage:
//
//	k, err := tapkeeper.New(cfg, logger, report.NewStdout(nil))
//	defer k.Close()
//	rep, err := k.AuditURL(ctx, "https://example.com/")
//	k.RegisterMCP(mcpServer)
//	k.RegisterConnectivity(router)
package tapkeeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/taptarget/collect"
	"github.com/hazyhaar/taptarget/idgen"
	"github.com/hazyhaar/taptarget/kit"
	"github.com/hazyhaar/taptarget/observability"
	"github.com/hazyhaar/taptarget/report"
	"github.com/hazyhaar/taptarget/tapaudit"
	"github.com/hazyhaar/taptarget/tapkeeper/internal/store"
)

// Collector turns a page URL into audit artifacts.
type Collector interface {
	Collect(ctx context.Context, pageURL string) (*tapaudit.Artifacts, error)
}

// Keeper is the tapkeeper orchestrator.
type Keeper struct {
	cfg     *Config
	store   *store.Store
	audit   *tapaudit.TapTargets
	sinks   *report.Router
	logger  *slog.Logger
	newID   idgen.Generator
	now     func() time.Time
	metrics *observability.Recorder

	mu        sync.Mutex
	collector Collector
	browser   *collect.Collector // owned, started lazily
}

// New opens the database and builds a Keeper delivering to sinks.
func New(cfg *Config, logger *slog.Logger, sinks ...report.Sink) (*Keeper, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("tapkeeper: open store: %w", err)
	}

	rec, err := observability.NewRecorder(s.DB, logger, 0, 0)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("tapkeeper: metrics: %w", err)
	}

	return &Keeper{
		cfg:     cfg,
		store:   s,
		audit:   tapaudit.New(cfg.Audit),
		sinks:   report.NewRouter(logger, sinks...),
		logger:  logger,
		newID:   idgen.Run(),
		now:     time.Now,
		metrics: rec,
	}, nil
}

// SetCollector replaces the browser collector used by AuditURL.
func (k *Keeper) SetCollector(c Collector) {
	k.mu.Lock()
	k.collector = c
	k.mu.Unlock()
}

// Close stops the browser, the sinks and the database.
func (k *Keeper) Close() error {
	k.mu.Lock()
	if k.browser != nil {
		k.browser.Close()
		k.browser = nil
	}
	k.mu.Unlock()
	k.metrics.Close()
	return errors.Join(k.sinks.Close(), k.store.Close())
}

// Store returns the underlying store for direct access (testing, admin).
func (k *Keeper) Store() *store.Store { return k.store }

// Metrics returns the audit timeseries recorder.
func (k *Keeper) Metrics() *observability.Recorder { return k.metrics }

// Evaluate audits artifacts collected elsewhere, stores the run and sends
// the report. A sink failure is logged, not returned.
func (k *Keeper) Evaluate(ctx context.Context, pageURL string, artifacts tapaudit.Artifacts) (*report.Report, error) {
	start := k.now()
	res := k.audit.Audit(artifacts)

	run := &store.Run{
		ID:        k.newID(),
		PageURL:   pageURL,
		AuditID:   k.audit.Meta().ID,
		Result:    res,
		CreatedAt: start.UnixMilli(),
	}
	if err := k.store.InsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("tapkeeper: save run: %w", err)
	}

	rep := &report.Report{
		ID:        run.ID,
		PageURL:   pageURL,
		AuditID:   run.AuditID,
		Timestamp: start,
		Result:    res,
	}
	if err := k.sinks.Send(ctx, *rep); err != nil {
		k.logger.WarnContext(ctx, "tapkeeper: report delivery failed", "run_id", run.ID, "error", err)
	}

	k.record(pageURL, start, res)

	k.logger.InfoContext(ctx, "tapkeeper: audit complete",
		"run_id", run.ID,
		"transport", kit.GetTransport(ctx),
		"request_id", kit.GetRequestID(ctx),
		"url", pageURL,
		"pass", res.Pass,
		"skipped", res.Skipped,
		"targets", res.TargetCount,
		"failing", res.FailingCount,
		"rows", len(res.Rows))
	return rep, nil
}

func (k *Keeper) record(pageURL string, start time.Time, res tapaudit.Result) {
	labels := map[string]string{"url": pageURL}
	k.metrics.Record(observability.Metric{
		Name: observability.MetricAuditDurationMs, Timestamp: start, Labels: labels, Unit: "ms",
		Value: float64(k.now().Sub(start).Milliseconds()),
	})
	if res.Skipped {
		return
	}
	k.metrics.Record(observability.Metric{Name: observability.MetricTargets, Timestamp: start, Labels: labels, Value: float64(res.TargetCount)})
	k.metrics.Record(observability.Metric{Name: observability.MetricFailingTargets, Timestamp: start, Labels: labels, Value: float64(res.FailingCount)})
	if res.Score != nil {
		k.metrics.Record(observability.Metric{Name: observability.MetricScore, Timestamp: start, Labels: labels, Value: *res.Score})
	}
}

// AuditURL loads pageURL in the browser and evaluates it.
func (k *Keeper) AuditURL(ctx context.Context, pageURL string) (*report.Report, error) {
	c, err := k.ensureCollector(ctx)
	if err != nil {
		return nil, err
	}
	artifacts, err := c.Collect(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("tapkeeper: collect %s: %w", pageURL, err)
	}
	return k.Evaluate(ctx, pageURL, *artifacts)
}

// AuditPages audits every configured page. A failing page does not stop
// the others; all errors are joined.
func (k *Keeper) AuditPages(ctx context.Context) ([]*report.Report, error) {
	var reports []*report.Report
	var errs []error
	for _, p := range k.cfg.Pages {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		rep, err := k.AuditURL(ctx, p.URL)
		if err != nil {
			k.logger.ErrorContext(ctx, "tapkeeper: page audit failed", "page_id", p.ID, "url", p.URL, "error", err)
			errs = append(errs, fmt.Errorf("page %s: %w", p.ID, err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

func (k *Keeper) ensureCollector(ctx context.Context) (Collector, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.collector != nil {
		return k.collector, nil
	}

	b := k.cfg.Browser
	c := collect.New(collect.Config{
		RemoteURL:        b.Remote,
		Stealth:          b.Stealth != "off",
		ResourceBlocking: b.ResourceBlocking,
		ViewportWidth:    b.Viewport.Width,
		ViewportHeight:   b.Viewport.Height,
		ScaleFactor:      b.Viewport.Scale,
		NavTimeout:       b.NavTimeout,
		AllowPrivate:     b.AllowPrivate,
		Logger:           k.logger,
	})
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("tapkeeper: %w", err)
	}
	k.browser = c
	k.collector = c
	return c, nil
}

// GetRun returns a stored run or ErrNotFound.
func (k *Keeper) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := k.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

// ListRuns returns recent runs, newest first, optionally for one page.
func (k *Keeper) ListRuns(ctx context.Context, pageURL string, limit int) ([]*RunSummary, error) {
	return k.store.ListRuns(ctx, pageURL, limit)
}

// Stats aggregates all stored runs.
func (k *Keeper) Stats(ctx context.Context) (*Stats, error) {
	c, err := k.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	off, err := k.store.TopOffenders(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Runs:       c.Runs,
		Pages:      c.Pages,
		Passed:     c.Passed,
		Skipped:    c.Skipped,
		FailedRows: c.FailedRows,
		MeanScore:  c.MeanScore,
		Offenders:  off,
	}, nil
}

// Prune deletes runs older than the configured retention.
func (k *Keeper) Prune(ctx context.Context) (int64, error) {
	if k.cfg.Retention <= 0 {
		return 0, nil
	}
	cutoff := k.now().Add(-k.cfg.Retention).UnixMilli()
	n, err := k.store.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		k.logger.InfoContext(ctx, "tapkeeper: pruned runs", "count", n, "retention", k.cfg.Retention)
	}
	return n, nil
}
