package connectivity

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/hazyhaar/taptarget/kit"
)

// HandlerMiddleware decorates a Handler.
type HandlerMiddleware func(next Handler) Handler

// Chain applies mws so that mws[0] sees the call first.
func Chain(mws ...HandlerMiddleware) HandlerMiddleware {
	return func(h Handler) Handler {
		for i := range mws {
			h = mws[len(mws)-1-i](h)
		}
		return h
	}
}

// Logging records one line per call of service. Failures log at error
// level, successes at debug.
func Logging(logger *slog.Logger, service string) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			t0 := time.Now()
			resp, err := next(ctx, payload)

			attrs := []any{
				"service", service,
				"duration_ms", time.Since(t0).Milliseconds(),
			}
			if id := kit.GetRequestID(ctx); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if err != nil {
				logger.ErrorContext(ctx, "connectivity: call failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.DebugContext(ctx, "connectivity: call",
				append(attrs, "in_bytes", len(payload), "out_bytes", len(resp))...)
			return resp, nil
		}
	}
}

// Timeout cancels the call after d.
func Timeout(d time.Duration) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, payload)
		}
	}
}

// Recovery converts a panic in next into an *ErrPanic error.
func Recovery(logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				logger.ErrorContext(ctx, "connectivity: panic", "panic", v, "stack", string(debug.Stack()))
				resp, err = nil, &ErrPanic{Value: v}
			}()
			return next(ctx, payload)
		}
	}
}
