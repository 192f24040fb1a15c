// Package gateway is the single boundary between the view model and the
// remote finance API.
//
// Adapters (httpapi, memory) implement API and report what went wrong.
// Gateway hides that from callers: every read reports either data or "no
// data available", every write reports success or failure. Failures are
// logged and counted here and never propagate further.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pfm/internal/core"
	"pfm/internal/log"
	"pfm/internal/metrics"
)

const (
	opTransactions = "list_transactions"
	opCategories   = "list_categories"
	opSummary      = "read_summary"
	opCreate       = "create_transaction"
	opDelete       = "delete_transaction"
)

type Gateway struct {
	api    API
	logger *log.Logger
}

// New wraps api. A nil logger discards output.
func New(api API, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Discard()
	}
	return &Gateway{api: api, logger: logger.WithComponent(log.ComponentGateway)}
}

// Transactions returns the server's transactions in server order.
func (g *Gateway) Transactions(ctx context.Context) ([]core.Transaction, bool) {
	var items []core.Transaction
	err := g.call(ctx, opTransactions, core.ResourceTransactions, func() (err error) {
		items, err = g.api.ListTransactions(ctx)
		return err
	})
	if err != nil {
		return nil, false
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return items, true
}

// Categories returns the server's categories in server order.
func (g *Gateway) Categories(ctx context.Context) ([]core.Category, bool) {
	var items []core.Category
	err := g.call(ctx, opCategories, core.ResourceCategories, func() (err error) {
		items, err = g.api.ListCategories(ctx)
		return err
	})
	if err != nil {
		return nil, false
	}
	if items == nil {
		items = []core.Category{}
	}
	return items, true
}

// Summary returns the server summary. ok is false when the call failed; a
// nil summary with ok true means the server reported none.
func (g *Gateway) Summary(ctx context.Context) (*core.Summary, bool) {
	var s *core.Summary
	err := g.call(ctx, opSummary, core.ResourceSummary, func() (err error) {
		s, err = g.api.ReadSummary(ctx)
		return err
	})
	if err != nil {
		return nil, false
	}
	return s, true
}

// Create submits a new transaction.
func (g *Gateway) Create(ctx context.Context, tx core.NewTransaction) bool {
	err := g.call(ctx, opCreate, core.ResourceTransactions, func() error {
		return g.api.CreateTransaction(ctx, tx)
	})
	if err == nil {
		g.logger.InfoContext(ctx, "Transaction created",
			log.NewFields().WithTransaction(tx.Kind.String(), tx.Amount.String(), tx.Category, tx.Date.String()).ToSlice()...)
	}
	return err == nil
}

// Delete removes the transaction whose normalized identifier is id.
func (g *Gateway) Delete(ctx context.Context, id string) bool {
	err := g.call(ctx, opDelete, core.ResourceTransactions, func() error {
		return g.api.DeleteTransaction(ctx, id)
	})
	if err == nil {
		g.logger.InfoContext(ctx, "Transaction deleted", log.FieldRecordID, id)
	}
	return err == nil
}

func (g *Gateway) call(ctx context.Context, op string, res core.Resource, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
		metrics.ObserveGateway(op, start, err == nil)
		if err != nil {
			errType := ErrorType(err)
			metrics.GatewayFailures.WithLabelValues(op, errType).Inc()
			g.logger.LogError(ctx, "Finance API call failed", err, op,
				log.NewFields().
					WithResource(res.String()).
					WithErrorType(errType).
					WithHTTPResponse(statusCode(err), time.Since(start).Milliseconds(), false))
		}
	}()
	return fn()
}

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
