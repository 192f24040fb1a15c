// Package worker applies mutation events published by other surfaces.
package worker

import (
	"context"
	"errors"
	"sync/atomic"

	"pfm/internal/amqp"
	"pfm/internal/core"
	"pfm/internal/log"
)

// Applier reacts to a mutation made elsewhere. *http.Server implements it.
type Applier interface {
	ApplyRemoteMutation(ctx context.Context, ev core.MutationEvent)
}

// Consumer delivers mutation messages until ctx ends. *amqp.Client
// implements it.
type Consumer interface {
	ConsumeMutations(ctx context.Context, handler func(*amqp.MutationMessage) error) error
}

// Stats counts handled messages since start.
type Stats struct {
	Applied int64
}

// MutationWorker forwards consumed mutation events to an Applier.
type MutationWorker struct {
	applier Applier
	logger  *log.Logger

	applied atomic.Int64
}

func NewMutationWorker(applier Applier, logger *log.Logger) *MutationWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MutationWorker{
		applier: applier,
		logger:  logger.WithComponent(log.ComponentAMQP),
	}
}

// HandleMutationMessage applies one message. Messages reach it already
// decoded and checked by amqp.MutationMessageFromJSON.
func (w *MutationWorker) HandleMutationMessage(ctx context.Context, msg *amqp.MutationMessage) error {
	ev := msg.Event
	w.logger.DebugContext(ctx, "Processing mutation message",
		log.FieldOperation, ev.Action,
		"source", ev.Source,
		"timestamp", ev.Timestamp)
	w.applier.ApplyRemoteMutation(ctx, ev)
	w.applied.Add(1)
	return nil
}

// Run consumes from c until ctx ends. A cancelled context is a clean stop.
func (w *MutationWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Mutation worker started")
	err := c.ConsumeMutations(ctx, func(msg *amqp.MutationMessage) error {
		return w.HandleMutationMessage(ctx, msg)
	})
	stats := w.Stats()
	w.logger.InfoContext(ctx, "Mutation worker stopped", "applied", stats.Applied)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *MutationWorker) Stats() Stats {
	return Stats{Applied: w.applied.Load()}
}
