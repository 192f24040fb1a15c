package commands

import (
	"context"
	"errors"

	"pfm/internal/core"
)

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev core.MutationEvent) error

func (f PublisherFunc) PublishMutation(ctx context.Context, ev core.MutationEvent) error {
	return f(ctx, ev)
}

// Fanout delivers every event to each publisher in order. Nil entries are
// skipped and one failure does not stop the rest.
type Fanout []Publisher

func (f Fanout) PublishMutation(ctx context.Context, ev core.MutationEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishMutation(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
