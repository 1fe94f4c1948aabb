// Package idgen mints the identifiers of audit runs and HTTP requests.
//
// IDs are UUID v7 strings, so a plain string sort of run IDs follows
// creation time. Code that mints IDs takes a Generator so tests can pin it.
package idgen

import (
	"github.com/google/uuid"
)

// Generator returns a fresh identifier on every call.
type Generator func() string

// Ordered generates UUID v7 strings.
func Ordered() Generator {
	return func() string { return uuid.Must(uuid.NewV7()).String() }
}

// Prefixed prepends prefix to every ID from gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}

// Default backs New.
var Default Generator = Ordered()

// Run generates audit run IDs ("run_<uuid>").
func Run() Generator { return Prefixed("run_", Default) }

// New returns an ID from Default.
func New() string { return Default() }

// maxForeign caps IDs accepted from outside, such as an X-Request-ID header.
const maxForeign = 64

// Accept reports whether an externally supplied ID is safe to echo and log:
// non-empty, at most 64 bytes of [A-Za-z0-9._-].
func Accept(id string) bool {
	if id == "" || len(id) > maxForeign {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
