// Package eventbus is the agent loop's observability tap: as the loop
// advances through steps it publishes one types.Event per tool call, and
// the CLI (or any other observer) subscribes to watch a session live.
// Adapted from internal/bus/bus.go's non-blocking fan-out, simplified from
// its keyed-subscriber/tap split down to a single tap list, since the
// control flow here is one strictly sequential event stream rather than
// many role-addressed message types.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/cortexmemory/cortex/internal/types"
)

const tapBufSize = 256

// Bus fans out published events to every registered tap. Publishing is
// synchronous (the agent loop has already written the event to disk by the
// time it publishes) but non-blocking per tap: a slow or abandoned tap
// never stalls the loop.
type Bus struct {
	mu   sync.RWMutex
	taps []chan types.Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Publish fans ev out to every tap, dropping it for any tap whose buffer is
// full rather than blocking the agent loop.
func (b *Bus) Publish(ev types.Event) {
	b.mu.RLock()
	taps := b.taps
	b.mu.RUnlock()

	for _, tap := range taps {
		select {
		case tap <- ev:
		default:
			slog.Warn("eventbus: tap buffer full, event dropped", "step", ev.Step, "tool", ev.Tool)
		}
	}
}

// NewTap registers and returns a new receive-only channel that will
// receive every event published after this call.
func (b *Bus) NewTap() <-chan types.Event {
	ch := make(chan types.Event, tapBufSize)
	b.mu.Lock()
	b.taps = append(b.taps, ch)
	b.mu.Unlock()
	return ch
}
