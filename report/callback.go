package report

import "context"

// Func receives reports in-process.
type Func func(ctx context.Context, r Report) error

// Callback hands reports to a Go function.
type Callback struct {
	fn Func
}

// NewCallback creates a Callback sink. A nil fn drops reports.
func NewCallback(fn Func) *Callback { return &Callback{fn: fn} }

func (c *Callback) Send(ctx context.Context, r Report) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, r)
}

func (c *Callback) Close() error { return nil }
