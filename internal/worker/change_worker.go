// Package worker runs the background side of a web instance: it listens for
// data-changed events from other instances and drops the page snapshots
// they made stale.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"mojbudzet/internal/amqp"
	"mojbudzet/internal/log"
)

// Invalidator drops every snapshot held for a user.
type Invalidator interface {
	Invalidate(userID int64) int
}

// Consumer delivers data-changed events until ctx ends.
type Consumer interface {
	ConsumeDataChanged(ctx context.Context, handler func(context.Context, *amqp.DataChangedMessage) error) error
}

// ChangeWorker applies data-changed events to the local snapshot caches.
type ChangeWorker struct {
	pages  Invalidator
	logger *log.Logger

	handled     atomic.Int64
	invalidated atomic.Int64
}

func NewChangeWorker(pages Invalidator, logger *log.Logger) *ChangeWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ChangeWorker{pages: pages, logger: logger.WithComponent(log.ComponentAMQP)}
}

// HandleDataChanged drops the snapshots of the user msg names.
func (w *ChangeWorker) HandleDataChanged(ctx context.Context, msg *amqp.DataChangedMessage) error {
	if msg == nil {
		return errors.New("nil message")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("data changed message: %w", err)
	}

	n := w.pages.Invalidate(msg.UserID)
	w.handled.Add(1)
	w.invalidated.Add(int64(n))

	w.logger.DebugContext(ctx, "Snapshots invalidated",
		log.FieldUserID, msg.UserID,
		log.FieldKind, msg.Kind,
		log.FieldMonth, msg.Month,
		"count", n)
	return nil
}

// Run consumes events until ctx ends. Cancellation is a clean stop.
func (w *ChangeWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Change worker started")
	err := c.ConsumeDataChanged(ctx, w.HandleDataChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume data changed: %w", err)
	}
	w.logger.InfoContext(ctx, "Change worker stopped",
		"handled", w.handled.Load(),
		"invalidated", w.invalidated.Load())
	return nil
}

// Stats returns how many events were applied and how many snapshots they
// dropped.
func (w *ChangeWorker) Stats() (handled, invalidated int64) {
	return w.handled.Load(), w.invalidated.Load()
}
