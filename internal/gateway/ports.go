package gateway

import (
	"context"

	"pfm/internal/core"
)

// Ports implemented by finance API adapters. Adapters report failures as
// errors; Gateway turns them into absence signals.
type (
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	CategoryLister interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// SummaryReader returns the server-computed summary. A nil summary with a
	// nil error means the server had nothing to report.
	SummaryReader interface {
		ReadSummary(ctx context.Context) (*core.Summary, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.NewTransaction) error
	}

	// TransactionDeleter removes a transaction by its normalized identifier.
	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, id string) error
	}

	API interface {
		TransactionLister
		CategoryLister
		SummaryReader
		TransactionWriter
		TransactionDeleter
	}
)
