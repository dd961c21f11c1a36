// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authflow.
//
// go-authflow is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package flow

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-authflow/pkg/logging"
	"github.com/jeremyhahn/go-authflow/pkg/metrics"
)

// Bus is the per-flow event queue: unbounded so producers never block, with
// a single logical consumer draining Events in arrival order. Sending on a
// closed bus is logged, never a panic.
type Bus struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *logging.Logger
	metrics  *metrics.Metrics
	registry *BusRegistry

	mu        sync.Mutex
	queue     []*Event
	closed    bool
	wake      chan struct{}
	out       chan *Event
	closeOnce sync.Once
	listeners []func()
}

// NewBus creates a bus scoped to parent and registers it in reg. The bus id
// is a fresh UUID.
func NewBus(parent context.Context, reg *BusRegistry, logger *logging.Logger, m *metrics.Metrics) *Bus {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	ctx, cancel := context.WithCancel(parent)
	b := &Bus{
		id:       uuid.NewString(),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		metrics:  m,
		registry: reg,
		wake:     make(chan struct{}, 1),
		out:      make(chan *Event),
	}
	if reg != nil {
		reg.register(b)
	}
	logger.Debugf("event bus created: %s", b.id)
	go b.pump()
	return b
}

// ID returns the bus id.
func (b *Bus) ID() string {
	return b.id
}

// Context returns the bus scope. It is cancelled when the bus closes.
func (b *Bus) Context() context.Context {
	return b.ctx
}

// Send enqueues an event. It never blocks; events sent after close are
// dropped with a warning.
func (b *Bus) Send(ev *Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warnf("event bus %s closed, dropping [%s]", b.id, ev.Action())
		b.metrics.Dropped()
		return
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Events returns the consumer channel. It is closed when the bus closes;
// events still queued at that point are dropped.
func (b *Bus) Events() <-chan *Event {
	return b.out
}

// AddCloseListener registers a callback run exactly once when the bus
// closes. Listeners registered after close run immediately.
func (b *Bus) AddCloseListener(fn func()) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		fn()
		return
	}
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Close cancels the bus scope, removes the bus from its registry and closes
// the consumer channel. Close is idempotent.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.logger.Debugf("event bus closed: %s", b.id)

		b.mu.Lock()
		b.closed = true
		listeners := b.listeners
		b.listeners = nil
		b.mu.Unlock()

		b.cancel()
		if b.registry != nil {
			b.registry.remove(b.id)
		}

		// Unblock the pump so it can observe closed and exit.
		select {
		case b.wake <- struct{}{}:
		default:
		}

		for _, fn := range listeners {
			fn()
		}
	})
}

// pump moves queued events to the consumer channel, preserving order.
func (b *Bus) pump() {
	defer close(b.out)
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return
		}
		var next *Event
		if len(b.queue) > 0 {
			next = b.queue[0]
			b.queue = b.queue[1:]
		}
		b.mu.Unlock()

		if next == nil {
			select {
			case <-b.wake:
			case <-b.ctx.Done():
				return
			}
			continue
		}

		select {
		case b.out <- next:
		case <-b.ctx.Done():
			return
		}
	}
}

// BusRegistry is an explicit lookup table of live buses. Each engine owns
// its registry; closed buses are never retained.
type BusRegistry struct {
	mu    sync.RWMutex
	buses map[string]*Bus
}

// NewBusRegistry creates an empty registry.
func NewBusRegistry() *BusRegistry {
	return &BusRegistry{buses: make(map[string]*Bus)}
}

// Lookup returns the live bus with the given id.
func (r *BusRegistry) Lookup(id string) (*Bus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buses[id]
	return b, ok
}

// Len returns the number of live buses.
func (r *BusRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buses)
}

func (r *BusRegistry) register(b *Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buses[b.id] = b
}

func (r *BusRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buses, id)
}
