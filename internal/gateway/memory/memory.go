// Package memory is an in-process finance API used for offline demos and
// tests. It seeds the default category set and computes the summary the way
// the remote server does.
package memory

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pfm/internal/core"
	"pfm/internal/gateway"
)

var _ gateway.API = (*Store)(nil)

const (
	transactionTable = "transaction"
	categoryTable    = "category"
)

// DefaultCategories is the category set a fresh account starts with.
var DefaultCategories = []core.Category{
	{Name: "給与", Kind: core.Income, Icon: "💼", Color: "#22c55e"},
	{Name: "副業", Kind: core.Income, Icon: "💰", Color: "#10b981"},
	{Name: "投資", Kind: core.Income, Icon: "📈", Color: "#14b8a6"},
	{Name: "その他収入", Kind: core.Income, Icon: "🎁", Color: "#06b6d4"},
	{Name: "食費", Kind: core.Expense, Icon: "🍔", Color: "#ef4444"},
	{Name: "交通費", Kind: core.Expense, Icon: "🚃", Color: "#f97316"},
	{Name: "住居費", Kind: core.Expense, Icon: "🏠", Color: "#eab308"},
	{Name: "光熱費", Kind: core.Expense, Icon: "💡", Color: "#84cc16"},
	{Name: "通信費", Kind: core.Expense, Icon: "📱", Color: "#06b6d4"},
	{Name: "娯楽", Kind: core.Expense, Icon: "🎮", Color: "#8b5cf6"},
	{Name: "医療費", Kind: core.Expense, Icon: "🏥", Color: "#ec4899"},
	{Name: "衣服", Kind: core.Expense, Icon: "👕", Color: "#f43f5e"},
	{Name: "教育", Kind: core.Expense, Icon: "📚", Color: "#6366f1"},
	{Name: "その他支出", Kind: core.Expense, Icon: "📦", Color: "#64748b"},
}

type Store struct {
	mu       sync.Mutex
	cats     []core.Category
	items    []core.Transaction
	failures map[string]error
	now      func() time.Time
}

// New returns a store seeded with cats. A nil cats uses DefaultCategories.
func New(cats []core.Category) *Store {
	if cats == nil {
		cats = DefaultCategories
	}
	s := &Store{failures: map[string]error{}, now: time.Now}
	for _, c := range cats {
		if c.ID.IsZero() {
			c.ID = core.ObjectID(newRecordKey(categoryTable))
		}
		s.cats = append(s.cats, c)
	}
	return s
}

// Operation names accepted by Fail.
const (
	OpListTransactions = "list_transactions"
	OpListCategories   = "list_categories"
	OpReadSummary      = "read_summary"
	OpCreate           = "create_transaction"
	OpDelete           = "delete_transaction"
)

// Fail makes every call of op return err until cleared with a nil err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Seed appends transactions as if they had been created on the server.
func (s *Store) Seed(txs ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		if tx.ID.IsZero() {
			tx.ID = core.ObjectID(newRecordKey(transactionTable))
		}
		s.items = append(s.items, tx)
	}
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpListTransactions]; err != nil {
		return nil, err
	}
	return append([]core.Transaction{}, s.items...), nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpListCategories]; err != nil {
		return nil, err
	}
	return append([]core.Category{}, s.cats...), nil
}

// ReadSummary totals income and expense; ByCategory covers expenses only.
func (s *Store) ReadSummary(_ context.Context) (*core.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpReadSummary]; err != nil {
		return nil, err
	}
	sum := &core.Summary{ByCategory: map[string]core.Amount{}}
	for _, tx := range s.items {
		if tx.Kind == core.Income {
			sum.TotalIncome = core.NewAmount(sum.TotalIncome.Add(tx.Amount.Decimal))
			continue
		}
		sum.TotalExpense = core.NewAmount(sum.TotalExpense.Add(tx.Amount.Decimal))
		sum.ByCategory[tx.Category] = core.NewAmount(sum.ByCategory[tx.Category].Add(tx.Amount.Decimal))
	}
	sum.Balance = core.NewAmount(sum.TotalIncome.Sub(sum.TotalExpense.Decimal))
	return sum, nil
}

// CreateTransaction rejects what the server rejects with 400.
func (s *Store) CreateTransaction(_ context.Context, n core.NewTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpCreate]; err != nil {
		return err
	}
	if !n.Kind.Valid() || !n.Amount.IsPositive() {
		return &gateway.StatusError{Code: http.StatusBadRequest}
	}
	s.items = append(s.items, core.Transaction{
		ID:          core.ObjectID(newRecordKey(transactionTable)),
		Kind:        n.Kind,
		Amount:      n.Amount,
		Category:    n.Category,
		Description: n.Description,
		Date:        n.Date,
		CreatedAt:   s.now().Format(time.RFC3339),
	})
	return nil
}

// DeleteTransaction accepts the id with or without its table prefix.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpDelete]; err != nil {
		return err
	}
	prefixed := id
	if !strings.HasPrefix(id, transactionTable+":") {
		prefixed = transactionTable + ":" + id
	}
	for i, tx := range s.items {
		if key := tx.ID.Normalize(); key == id || key == prefixed {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return &gateway.StatusError{Code: http.StatusNotFound}
}

func newRecordKey(table string) string {
	return table + ":" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
