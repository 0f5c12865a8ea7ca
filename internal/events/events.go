// Package events fans out in-process notifications about catalog and stock changes.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"artlicor/backend/internal/logging"
)

type Kind string

const (
	// SaleCommitted is the stock-affecting commit completed notification.
	SaleCommitted  Kind = "sale.committed"
	StockAdjusted  Kind = "stock.adjusted"
	CatalogChanged Kind = "catalog.changed"
)

type Event struct {
	Kind       Kind
	ProductIDs []string
	SaleCode   int64
	At         time.Time
}

func (e Event) StockAffecting() bool {
	return e.Kind == SaleCommitted || e.Kind == StockAdjusted
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers events synchronously to every subscriber in subscription order.
// A failing handler is logged and does not stop delivery.
type Bus struct {
	mu       sync.RWMutex
	handlers []namedHandler
	logger   *zap.Logger
}

type namedHandler struct {
	name string
	fn   Handler
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logging.OrNop(logger).Named("events")}
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, namedHandler{name: name, fn: h})
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]namedHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.fn(ctx, e); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("handler", h.name),
				zap.String("kind", string(e.Kind)),
				zap.Error(err))
		}
	}
}
