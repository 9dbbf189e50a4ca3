// Package transformer turns source rows into target rows following a sheet
// mapping: value pull, transforms, find/replace, defaults, type coercion,
// rule overrides and the blank-row filter.
package transformer

import (
	"sync"

	"github.com/user/tabmap/pkg/mapping"
)

// Func rewrites one cell value. A returned error leaves the value unchanged.
type Func func(v any) (any, error)

var (
	registryMu sync.RWMutex
	registry   = map[mapping.Transform]Func{}
)

// Register makes a transform available under name. Registering an existing
// name replaces it.
func Register(name mapping.Transform, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Get returns the transform registered under name.
func Get(name mapping.Transform) (Func, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}
