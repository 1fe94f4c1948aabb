// Package observability records audit timeseries in SQLite next to the runs
// they describe.
//
// Metrics are buffered and written in batches by a background goroutine.
// A full buffer is handed to that goroutine, so Record only ever waits on
// the in-memory lock. A failed write is logged and its batch dropped.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Schema is the metrics table.
const Schema = `
CREATE TABLE IF NOT EXISTS metrics (
    name      TEXT NOT NULL,
    ts        INTEGER NOT NULL,
    value     REAL NOT NULL,
    labels    TEXT,
    unit      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_metrics_name_ts ON metrics(name, ts DESC);
`

// Metric names recorded by tapkeeper.
const (
	MetricAuditDurationMs = "tapaudit_duration_ms"
	MetricTargets         = "tapaudit_targets"
	MetricFailingTargets  = "tapaudit_failing_targets"
	MetricScore           = "tapaudit_score"
)

// Metric is one datapoint.
type Metric struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Unit      string            `json:"unit,omitempty"`
}

// Recorder buffers metrics and flushes them to SQLite.
type Recorder struct {
	db            *sql.DB
	logger        *slog.Logger
	bufferSize    int
	flushInterval time.Duration

	mu      sync.Mutex
	buffer  []Metric
	pending [][]Metric
	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewRecorder applies Schema and starts the flush loop. Zero bufferSize or
// flushInterval take 100 and 5s.
func NewRecorder(db *sql.DB, logger *slog.Logger, bufferSize int, flushInterval time.Duration) (*Recorder, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("observability: schema: %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		db:            db,
		logger:        logger,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		buffer:        make([]Metric, 0, bufferSize),
		kick:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

// Record queues m. A full buffer is queued for the flush loop.
func (r *Recorder) Record(m Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	r.mu.Lock()
	r.buffer = append(r.buffer, m)
	full := len(r.buffer) >= r.bufferSize
	if full {
		r.pending = append(r.pending, r.buffer)
		r.buffer = make([]Metric, 0, r.bufferSize)
	}
	r.mu.Unlock()

	if full {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

// Flush writes every queued and buffered metric before returning.
func (r *Recorder) Flush() {
	r.mu.Lock()
	batches := r.pending
	if len(r.buffer) > 0 {
		batches = append(batches, r.buffer)
		r.buffer = make([]Metric, 0, r.bufferSize)
	}
	r.pending = nil
	r.mu.Unlock()

	for _, b := range batches {
		r.write(b)
	}
}

// Query returns metrics named name (all when empty) recorded at or after
// since, newest first.
func (r *Recorder) Query(ctx context.Context, name string, since time.Time, limit int) ([]Metric, error) {
	q := `SELECT name, ts, value, labels, unit FROM metrics WHERE ts >= ?`
	args := []any{since.UnixMilli()}
	if name != "" {
		q += ` AND name = ?`
		args = append(args, name)
	}
	q += ` ORDER BY ts DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: query: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		var ts int64
		var labels sql.NullString
		if err := rows.Scan(&m.Name, &ts, &m.Value, &labels, &m.Unit); err != nil {
			return nil, fmt.Errorf("observability: scan: %w", err)
		}
		m.Timestamp = time.UnixMilli(ts)
		if labels.Valid {
			if err := json.Unmarshal([]byte(labels.String), &m.Labels); err != nil {
				r.logger.WarnContext(ctx, "observability: bad labels", "metric", m.Name, "error", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close flushes what is left and stops the loop. Later calls are no-ops.
func (r *Recorder) Close() error {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	return nil
}

func (r *Recorder) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			r.Flush()
			return
		case <-ticker.C:
			r.Flush()
		case <-r.kick:
			r.Flush()
		}
	}
}

func (r *Recorder) write(batch []Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("observability: begin tx", "error", err, "dropped", len(batch))
		return
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metrics (name, ts, value, labels, unit) VALUES (?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		r.logger.Error("observability: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, m := range batch {
		var labels sql.NullString
		if len(m.Labels) > 0 {
			if b, err := json.Marshal(m.Labels); err == nil {
				labels = sql.NullString{String: string(b), Valid: true}
			}
		}
		if _, err := stmt.ExecContext(ctx, m.Name, m.Timestamp.UnixMilli(), m.Value, labels, m.Unit); err != nil {
			r.logger.Error("observability: insert", "error", err, "metric", m.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		r.logger.Error("observability: commit", "error", err)
	}
}
