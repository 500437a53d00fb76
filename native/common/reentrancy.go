package common

import (
	"errors"
	"sync"
)

// ErrReentrantCall is returned when a mutating operation is entered while a
// related operation is still in flight.
var ErrReentrantCall = errors.New("reentrant call")

// ReentrancyGuard serialises the asset-moving entry points of an engine. The
// guard covers the whole operation: Enter must be called before the first
// transfer and the returned release function deferred so every exit path,
// including error paths, releases the guard.
type ReentrancyGuard struct {
	mu   sync.Mutex
	busy bool
}

// Enter acquires the guard. It fails with ErrReentrantCall when another
// operation guarded by the same instance has not finished.
func (g *ReentrancyGuard) Enter() (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return nil, ErrReentrantCall
	}
	g.busy = true
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}, nil
}
