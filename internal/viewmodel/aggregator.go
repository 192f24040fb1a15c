package viewmodel

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"pfm/internal/core"
	"pfm/internal/log"
	"pfm/internal/metrics"
)

// Source is the absence-signalling read side of the finance API.
// *gateway.Gateway implements it.
type Source interface {
	Transactions(ctx context.Context) ([]core.Transaction, bool)
	Categories(ctx context.Context) ([]core.Category, bool)
	Summary(ctx context.Context) (*core.Summary, bool)
}

// Aggregator loads the three resources into a Store.
type Aggregator struct {
	src    Source
	store  *Store
	logger *log.Logger
	now    func() time.Time
}

func NewAggregator(src Source, store *Store, logger *log.Logger) *Aggregator {
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Aggregator{
		src:    src,
		store:  store,
		logger: logger.WithComponent(log.ComponentViewModel),
		now:    time.Now,
	}
}

// Store returns the state container the aggregator writes to.
func (a *Aggregator) Store() *Store { return a.store }

// Reload fetches transactions, categories and summary concurrently and
// dispatches each result as soon as it arrives. A failed resource keeps its
// previous value and sets the error banner; the other two are unaffected.
// Results of a reload superseded by a newer one are dropped.
//
// Reload returns once all three requests have resolved, with the snapshot
// current at that point.
func (a *Aggregator) Reload(ctx context.Context) Snapshot {
	token := a.store.Begin()
	start := a.now()
	a.logger.DebugContext(ctx, "Reload started", log.FieldToken, token)

	var g errgroup.Group
	g.Go(func() error {
		items, ok := a.src.Transactions(ctx)
		if ok {
			a.apply(ctx, core.ResourceTransactions, TransactionsLoaded{Token: token, Items: items})
		} else {
			a.apply(ctx, core.ResourceTransactions, ResourceFailed{Token: token, Resource: core.ResourceTransactions})
		}
		return nil
	})
	g.Go(func() error {
		items, ok := a.src.Categories(ctx)
		if ok {
			a.apply(ctx, core.ResourceCategories, CategoriesLoaded{Token: token, Items: items})
		} else {
			a.apply(ctx, core.ResourceCategories, ResourceFailed{Token: token, Resource: core.ResourceCategories})
		}
		return nil
	})
	g.Go(func() error {
		s, ok := a.src.Summary(ctx)
		if ok {
			a.apply(ctx, core.ResourceSummary, SummaryLoaded{Token: token, Summary: s})
		} else {
			a.apply(ctx, core.ResourceSummary, ResourceFailed{Token: token, Resource: core.ResourceSummary})
		}
		return nil
	})
	_ = g.Wait()

	if a.store.Dispatch(ReloadFinished{Token: token, At: a.now()}) {
		metrics.Reloads.Inc()
		snap := a.store.Snapshot()
		a.logger.InfoContext(ctx, "Reload finished",
			log.FieldToken, token,
			log.FieldCount, len(snap.Transactions),
			log.FieldSuccess, snap.Error == "",
			log.FieldDuration, a.now().Sub(start).Milliseconds())
	} else {
		a.logger.DebugContext(ctx, "Reload superseded", log.FieldToken, token)
	}
	return a.store.Snapshot()
}

func (a *Aggregator) apply(ctx context.Context, res core.Resource, act Action) {
	if a.store.Dispatch(act) {
		if _, failed := act.(ResourceFailed); failed {
			a.logger.WarnContext(ctx, "Resource unavailable, keeping previous value",
				log.FieldResource, res.String())
		}
		return
	}
	metrics.DiscardedResults.WithLabelValues(res.String()).Inc()
	a.logger.DebugContext(ctx, "Discarded superseded result", log.FieldResource, res.String())
}
