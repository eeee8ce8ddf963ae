// Package events provides a small synchronous dispatcher used to fan fill
// and alert events out to registered handlers.
//
// Handlers run in registration order on the caller's goroutine. A panicking
// handler is recovered and logged at the dispatch site so that a broken
// downstream consumer cannot halt order or fill processing.
package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openexec/krakencore/pkg/metrics"
)

// Handler consumes one event of type T.
type Handler[T any] func(T)

// Dispatcher fans events of type T out to registered handlers.
type Dispatcher[T any] struct {
	name    string
	logger  *zap.Logger
	mu      sync.RWMutex
	handler []Handler[T]

	dispatched int64
	failed     int64
}

// NewDispatcher creates a dispatcher. The name tags log lines and metrics.
func NewDispatcher[T any](name string, logger *zap.Logger) *Dispatcher[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher[T]{name: name, logger: logger}
}

// Register appends a handler. Handlers are invoked in registration order.
func (d *Dispatcher[T]) Register(h Handler[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = append(d.handler, h)
}

// Len returns the number of registered handlers.
func (d *Dispatcher[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handler)
}

// Dispatch delivers the event to every handler synchronously. Panics are
// recovered per handler; remaining handlers still run.
func (d *Dispatcher[T]) Dispatch(event T) {
	d.mu.RLock()
	handlers := append([]Handler[T]{}, d.handler...)
	d.mu.RUnlock()

	for i, h := range handlers {
		d.invoke(i, h, event)
	}
	d.mu.Lock()
	d.dispatched++
	d.mu.Unlock()
}

func (d *Dispatcher[T]) invoke(idx int, h Handler[T], event T) {
	defer func() {
		if r := recover(); r != nil {
			d.mu.Lock()
			d.failed++
			d.mu.Unlock()
			metrics.HandlerFailures.WithLabelValues(d.name).Inc()
			d.logger.Error("event handler panic",
				zap.String("dispatcher", d.name),
				zap.Int("handler", idx),
				zap.Any("recover", r))
		}
	}()
	h(event)
}

// Stats reports how many events were dispatched and how many handler
// invocations panicked.
func (d *Dispatcher[T]) Stats() (dispatched, failed int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dispatched, d.failed
}
