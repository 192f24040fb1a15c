// Package commands implements the create and delete mutations.
//
// Each command validates locally, calls the gateway, and on success runs a
// full view model reload. Only one submission may be in flight at a time.
package commands

import (
	"context"
	"errors"
	"sync"
	"time"

	"pfm/internal/core"
	"pfm/internal/log"
	"pfm/internal/metrics"
	"pfm/internal/viewmodel"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrSubmitFailed       = errors.New("failed to save the transaction")
	ErrDeleteFailed       = errors.New("failed to delete the transaction")
)

// State of the command runner.
type State int

const (
	Idle State = iota
	Submitting
	IdleWithError
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case IdleWithError:
		return "idle_with_error"
	default:
		return "idle"
	}
}

type (
	// Writer is the absence-signalling write side of the finance API.
	// *gateway.Gateway implements it.
	Writer interface {
		Create(ctx context.Context, tx core.NewTransaction) bool
		Delete(ctx context.Context, id string) bool
	}

	Reloader interface {
		Reload(ctx context.Context) viewmodel.Snapshot
	}

	// Publisher announces successful mutations to other surfaces.
	Publisher interface {
		PublishMutation(ctx context.Context, ev core.MutationEvent) error
	}
)

type Commands struct {
	writer    Writer
	reloader  Reloader
	publisher Publisher
	logger    *log.Logger
	source    string
	now       func() time.Time

	mu      sync.Mutex
	state   State
	lastErr error
}

// Option configures Commands.
type Option func(*Commands)

// WithPublisher publishes a MutationEvent after each successful mutation.
func WithPublisher(p Publisher, source string) Option {
	return func(c *Commands) {
		c.publisher = p
		c.source = source
	}
}

// WithClock overrides the clock used for form resets and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Commands) { c.now = now }
}

func New(w Writer, r Reloader, logger *log.Logger, opts ...Option) *Commands {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Commands{
		writer:   w,
		reloader: r,
		logger:   logger.WithComponent(log.ComponentCommands),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Commands) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error of the last failed command, nil after a success.
func (c *Commands) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Create validates f, submits it and reloads the view. On success the form
// is reset for the next entry; on failure it is left untouched.
func (c *Commands) Create(ctx context.Context, f *Form) error {
	const name = "create"
	payload, err := f.Validate()
	if err != nil {
		c.reject(name, err)
		c.logger.DebugContext(ctx, "Create rejected", log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeValidation)
		return err
	}
	if err := c.begin(name); err != nil {
		return err
	}

	if !c.writer.Create(ctx, payload) {
		c.finish(name, ErrSubmitFailed)
		return ErrSubmitFailed
	}

	f.Reset(c.now())
	amount := payload.Amount
	c.publish(ctx, core.MutationEvent{
		Action:   core.MutationCreated,
		Kind:     payload.Kind,
		Amount:   &amount,
		Category: payload.Category,
		Date:     payload.Date.String(),
	})
	c.reloader.Reload(ctx)
	c.finish(name, nil)
	return nil
}

// Delete removes the transaction identified by id and reloads the view.
func (c *Commands) Delete(ctx context.Context, id core.RecordID) error {
	return c.DeleteKey(ctx, id.Normalize())
}

// DeleteKey is Delete for an already normalized identifier, as received
// from a list key or a URL.
func (c *Commands) DeleteKey(ctx context.Context, key string) error {
	const name = "delete"
	if err := c.begin(name); err != nil {
		return err
	}
	if !c.writer.Delete(ctx, key) {
		c.finish(name, ErrDeleteFailed)
		return ErrDeleteFailed
	}
	c.publish(ctx, core.MutationEvent{Action: core.MutationDeleted, ID: key})
	c.reloader.Reload(ctx)
	c.finish(name, nil)
	return nil
}

func (c *Commands) begin(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		metrics.Commands.WithLabelValues(name, metrics.OutcomeRejected).Inc()
		return ErrSubmissionInFlight
	}
	c.state = Submitting
	return nil
}

func (c *Commands) finish(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err != nil {
		c.state = IdleWithError
		metrics.Commands.WithLabelValues(name, metrics.OutcomeFailed).Inc()
		return
	}
	c.state = Idle
	metrics.Commands.WithLabelValues(name, metrics.OutcomeOK).Inc()
}

// reject records a validation failure unless a submission is running.
func (c *Commands) reject(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	metrics.Commands.WithLabelValues(name, metrics.OutcomeRejected).Inc()
	if c.state != Submitting {
		c.state = IdleWithError
		c.lastErr = err
	}
}

func (c *Commands) publish(ctx context.Context, ev core.MutationEvent) {
	if c.publisher == nil {
		return
	}
	ev.Source = c.source
	ev.Timestamp = c.now().UTC()
	if err := c.publisher.PublishMutation(ctx, ev); err != nil {
		c.logger.LogError(ctx, "Failed to publish mutation event", err, log.OpPublish,
			log.NewFields().WithErrorType(log.ErrorTypeNetwork))
	}
}
