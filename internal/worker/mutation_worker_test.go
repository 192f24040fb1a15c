package worker

import (
	"context"
	"errors"
	"testing"

	"pfm/internal/amqp"
	"pfm/internal/core"
)

type recordingApplier struct {
	events []core.MutationEvent
}

func (a *recordingApplier) ApplyRemoteMutation(_ context.Context, ev core.MutationEvent) {
	a.events = append(a.events, ev)
}

// replayConsumer hands its messages to the handler, then behaves like a
// broker whose context was cancelled.
type replayConsumer struct {
	messages []*amqp.MutationMessage
	err      error
}

func (c *replayConsumer) ConsumeMutations(ctx context.Context, handler func(*amqp.MutationMessage) error) error {
	for _, msg := range c.messages {
		if err := handler(msg); err != nil {
			return err
		}
	}
	if c.err != nil {
		return c.err
	}
	return context.Canceled
}

func TestHandleMutationMessage(t *testing.T) {
	for _, action := range []string{core.MutationCreated, core.MutationDeleted} {
		t.Run(action, func(t *testing.T) {
			applier := &recordingApplier{}
			w := NewMutationWorker(applier, nil)

			msg := amqp.NewMutationMessage(core.MutationEvent{Action: action, ID: "t-1", Source: "cli"})
			if err := w.HandleMutationMessage(context.Background(), msg); err != nil {
				t.Fatalf("HandleMutationMessage() error = %v", err)
			}
			if len(applier.events) != 1 || applier.events[0].Action != action {
				t.Errorf("applied events = %+v", applier.events)
			}
			if got := w.Stats().Applied; got != 1 {
				t.Errorf("Stats().Applied = %d, want 1", got)
			}
		})
	}
}

func TestRun(t *testing.T) {
	applier := &recordingApplier{}
	w := NewMutationWorker(applier, nil)
	c := &replayConsumer{messages: []*amqp.MutationMessage{
		amqp.NewMutationMessage(core.MutationEvent{Action: core.MutationCreated, Source: "cli"}),
		amqp.NewMutationMessage(core.MutationEvent{Action: core.MutationDeleted, ID: "t-2", Source: "web:1"}),
	}}

	if err := w.Run(context.Background(), c); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if len(applier.events) != 2 || applier.events[1].ID != "t-2" {
		t.Errorf("applied events = %+v", applier.events)
	}
}

func TestRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("channel closed")
	w := NewMutationWorker(&recordingApplier{}, nil)
	if err := w.Run(context.Background(), &replayConsumer{err: boom}); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}
