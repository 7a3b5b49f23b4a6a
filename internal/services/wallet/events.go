package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerwallet/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type EventType string

const (
	EventStarted  EventType = "wallet.transaction.started"
	EventCreated  EventType = "wallet.transaction.created"
	EventCredited EventType = "wallet.transaction.credited"
	EventDebited  EventType = "wallet.transaction.debited"
	EventFailed   EventType = "wallet.transaction.failed"
	EventFinished EventType = "wallet.transaction.finished"
)

// Event is published at each stage of an operation. Transaction is set on
// Created, Credited and Debited, and on Finished when the operation
// succeeded. Err is set on Failed. Created, Credited and Debited are published
// inside the storage transaction, so they may be followed by a rollback;
// listeners that need committed work should act on Finished.
type Event struct {
	Type        EventType
	AccountID   string
	Direction   Direction
	Amount      decimal.Decimal
	Transaction *models.Transaction
	Err         error
	OccurredAt  time.Time
}

type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event) error

func (f ListenerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Dispatcher fans events out to listeners in subscription order. Delivery is
// synchronous and best-effort: a failing or panicking listener is logged and
// the remaining listeners still run.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
	logger    *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Subscribe(listener Listener) {
	if listener == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, listener)
}

func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, listener := range listeners {
		if err := d.deliver(ctx, listener, event); err != nil {
			d.logger.Error("event listener failed",
				zap.String("event", string(event.Type)),
				zap.String("account_id", event.AccountID),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, listener Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return listener.Handle(ctx, event)
}
