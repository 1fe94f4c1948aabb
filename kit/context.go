package kit

import "context"

// Transport names the surface a call arrived through.
type Transport string

const (
	TransportHTTP  Transport = "http"
	TransportMCP   Transport = "mcp"
	TransportLocal Transport = "local"
)

type (
	transportKey struct{}
	requestIDKey struct{}
)

// WithTransport records the surface of the current call.
func WithTransport(ctx context.Context, t Transport) context.Context {
	return context.WithValue(ctx, transportKey{}, t)
}

// GetTransport returns the recorded surface, TransportHTTP when unset.
func GetTransport(ctx context.Context) Transport {
	if t, ok := ctx.Value(transportKey{}).(Transport); ok {
		return t
	}
	return TransportHTTP
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
