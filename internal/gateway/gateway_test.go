package gateway

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"pfm/internal/core"
	"pfm/internal/log"
)

type fakeAPI struct {
	txs     []core.Transaction
	cats    []core.Category
	summary *core.Summary
	err     error
	panics  bool
	deleted []string
	created []core.NewTransaction
}

func (f *fakeAPI) ListTransactions(context.Context) ([]core.Transaction, error) {
	if f.panics {
		panic("adapter bug")
	}
	return f.txs, f.err
}

func (f *fakeAPI) ListCategories(context.Context) ([]core.Category, error) { return f.cats, f.err }

func (f *fakeAPI) ReadSummary(context.Context) (*core.Summary, error) { return f.summary, f.err }

func (f *fakeAPI) CreateTransaction(_ context.Context, tx core.NewTransaction) error {
	if f.err == nil {
		f.created = append(f.created, tx)
	}
	return f.err
}

func (f *fakeAPI) DeleteTransaction(_ context.Context, id string) error {
	if f.err == nil {
		f.deleted = append(f.deleted, id)
	}
	return f.err
}

func TestReadsOnSuccess(t *testing.T) {
	api := &fakeAPI{
		txs:     []core.Transaction{{ID: core.StringID("t1")}},
		summary: &core.Summary{Balance: core.AmountFromInt(5)},
	}
	g := New(api, nil)
	ctx := context.Background()

	if txs, ok := g.Transactions(ctx); !ok || len(txs) != 1 {
		t.Fatalf("Transactions() = %v, %v", txs, ok)
	}
	if cats, ok := g.Categories(ctx); !ok || cats == nil || len(cats) != 0 {
		t.Fatalf("nil list should come back as empty, got %v, %v", cats, ok)
	}
	if s, ok := g.Summary(ctx); !ok || s.Balance.IntPart() != 5 {
		t.Fatalf("Summary() = %v, %v", s, ok)
	}
}

func TestAbsentSummary(t *testing.T) {
	g := New(&fakeAPI{}, nil)
	if s, ok := g.Summary(context.Background()); !ok || s != nil {
		t.Fatalf("null summary is a successful absent value, got %v, %v", s, ok)
	}
}

func TestFailuresBecomeAbsence(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType string
	}{
		{"network", ErrNetwork, log.ErrorTypeNetwork},
		{"status", &StatusError{Code: 503}, log.ErrorTypeStatus},
		{"malformed", ErrMalformed, log.ErrorTypeMalformed},
		{"deadline", context.DeadlineExceeded, log.ErrorTypeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := log.New(log.Config{Level: slog.LevelInfo, Output: &buf})
			g := New(&fakeAPI{err: tt.err}, logger)
			ctx := context.Background()

			if _, ok := g.Transactions(ctx); ok {
				t.Error("Transactions() ok on failure")
			}
			if _, ok := g.Categories(ctx); ok {
				t.Error("Categories() ok on failure")
			}
			if _, ok := g.Summary(ctx); ok {
				t.Error("Summary() ok on failure")
			}
			if g.Create(ctx, core.NewTransaction{}) {
				t.Error("Create() true on failure")
			}
			if g.Delete(ctx, "x") {
				t.Error("Delete() true on failure")
			}
			out := buf.String()
			if !strings.Contains(out, "error_type="+tt.errType) || !strings.Contains(out, "component=gateway") {
				t.Errorf("log missing error type %q: %s", tt.errType, out)
			}
		})
	}
}

func TestPanicIsRecovered(t *testing.T) {
	g := New(&fakeAPI{panics: true}, nil)
	if _, ok := g.Transactions(context.Background()); ok {
		t.Fatal("panicking adapter must report absence")
	}
}

func TestWritesPassThrough(t *testing.T) {
	api := &fakeAPI{}
	g := New(api, nil)
	if !g.Create(context.Background(), core.NewTransaction{Category: "Food"}) {
		t.Fatal("Create() = false")
	}
	if !g.Delete(context.Background(), "transactions:abc") {
		t.Fatal("Delete() = false")
	}
	if len(api.created) != 1 || len(api.deleted) != 1 || api.deleted[0] != "transactions:abc" {
		t.Fatalf("unexpected calls: %+v", api)
	}
}

func TestErrorType(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), &StatusError{Code: 404})
	if got := ErrorType(wrapped); got != log.ErrorTypeStatus {
		t.Errorf("ErrorType(wrapped status) = %q", got)
	}
	if got := ErrorType(errors.New("other")); got != log.ErrorTypeInternal {
		t.Errorf("ErrorType(other) = %q", got)
	}
	if ErrorType(nil) != "" {
		t.Error("ErrorType(nil) should be empty")
	}
}
