package connectivity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/taptarget/safeurl"
)

// maxResponseBody caps remote responses at 10 MiB.
const maxResponseBody int64 = 10 << 20

type httpRouteConfig struct {
	TimeoutMs   int64  `json:"timeout_ms"`
	ContentType string `json:"content_type"`
}

// HTTPOptions tunes HTTPFactory.
type HTTPOptions struct {
	// AllowPrivate lets routes target loopback and private addresses.
	AllowPrivate bool
}

// HTTPFactory builds Handlers that POST the payload to the route endpoint.
// The route config may set timeout_ms (default 30000) and content_type
// (default application/json).
func HTTPFactory(opts HTTPOptions) TransportFactory {
	return func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		if _, err := safeurl.ValidateURL(endpoint, safeurl.Options{AllowPrivate: opts.AllowPrivate}); err != nil {
			return nil, nil, fmt.Errorf("connectivity/http: %w", err)
		}

		var cfg httpRouteConfig
		if len(config) > 0 {
			if err := json.Unmarshal(config, &cfg); err != nil {
				return nil, nil, fmt.Errorf("connectivity/http: route config: %w", err)
			}
		}
		timeout := 30 * time.Second
		if cfg.TimeoutMs > 0 {
			timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
		}
		contentType := "application/json"
		if cfg.ContentType != "" {
			contentType = cfg.ContentType
		}

		client := &http.Client{Timeout: timeout}
		handler := func(ctx context.Context, payload []byte) ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("connectivity/http: create request: %w", err)
			}
			req.Header.Set("Content-Type", contentType)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("connectivity/http: do request: %w", err)
			}
			defer resp.Body.Close()

			body, err := safeurl.LimitedReadAll(resp.Body, maxResponseBody)
			if err != nil {
				return nil, fmt.Errorf("connectivity/http: read response: %w", err)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, fmt.Errorf("connectivity/http: status %d: %s", resp.StatusCode, body)
			}
			return body, nil
		}
		return handler, client.CloseIdleConnections, nil
	}
}
