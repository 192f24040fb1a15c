package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"pfm/internal/core"
	"pfm/internal/gateway"
	"pfm/internal/gateway/memory"
	"pfm/internal/viewmodel"
)

var fixedNow = time.Date(2024, 3, 25, 9, 30, 0, 0, time.UTC)

type countingWriter struct {
	creates, deletes int
	ok               bool
	block            chan struct{}
	entered          chan struct{}
}

func (w *countingWriter) Create(context.Context, core.NewTransaction) bool {
	w.creates++
	if w.block != nil {
		close(w.entered)
		<-w.block
	}
	return w.ok
}

func (w *countingWriter) Delete(context.Context, string) bool {
	w.deletes++
	return w.ok
}

type countingReloader struct{ n int }

func (r *countingReloader) Reload(context.Context) viewmodel.Snapshot {
	r.n++
	return viewmodel.Empty()
}

type recordingPublisher struct {
	events []core.MutationEvent
	err    error
}

func (p *recordingPublisher) PublishMutation(_ context.Context, ev core.MutationEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func TestCreateValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		form Form
		want error
	}{
		{"zero amount", Form{Kind: core.Expense, Amount: "0", Category: "Food", Date: "2024-01-01"}, ErrInvalidAmount},
		{"empty category", Form{Kind: core.Expense, Amount: "100", Category: "", Date: "2024-01-01"}, ErrMissingFields},
		{"empty amount", Form{Kind: core.Expense, Amount: " ", Category: "Food", Date: "2024-01-01"}, ErrMissingFields},
		{"not a number", Form{Kind: core.Expense, Amount: "abc", Category: "Food", Date: "2024-01-01"}, ErrInvalidAmount},
		{"negative", Form{Kind: core.Expense, Amount: "-5", Category: "Food", Date: "2024-01-01"}, ErrInvalidAmount},
		{"bad date", Form{Kind: core.Expense, Amount: "5", Category: "Food", Date: "01/02/2024"}, ErrInvalidDate},
		{"bad kind", Form{Kind: "transfer", Amount: "5", Category: "Food", Date: "2024-01-01"}, core.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &countingWriter{ok: true}
			r := &countingReloader{}
			c := New(w, r, nil)
			f := tt.form

			err := c.Create(context.Background(), &f)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
			if w.creates != 0 || r.n != 0 {
				t.Fatalf("network touched: creates=%d reloads=%d", w.creates, r.n)
			}
			if c.State() != IdleWithError || !errors.Is(c.LastError(), tt.want) {
				t.Fatalf("state=%v lastErr=%v", c.State(), c.LastError())
			}
			if Message(err) == "" {
				t.Fatal("every validation error needs a message")
			}
		})
	}
}

func TestCreateSuccessResetsFormAndReloads(t *testing.T) {
	w := &countingWriter{ok: true}
	r := &countingReloader{}
	pub := &recordingPublisher{}
	c := New(w, r, nil, WithPublisher(pub, "web"), WithClock(func() time.Time { return fixedNow }))

	f := &Form{Kind: core.Income, Amount: "250,000", Category: "給与", Description: "March", Date: "2024-03-01"}
	if err := c.Create(context.Background(), f); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if w.creates != 1 || r.n != 1 {
		t.Fatalf("creates=%d reloads=%d", w.creates, r.n)
	}
	if f.Amount != "" || f.Description != "" || f.Date != "2024-03-25" {
		t.Fatalf("form not reset: %+v", f)
	}
	if f.Kind != core.Income || f.Category != "給与" {
		t.Fatalf("kind and category should carry over: %+v", f)
	}
	if c.State() != Idle || c.LastError() != nil {
		t.Fatalf("state=%v lastErr=%v", c.State(), c.LastError())
	}
	if len(pub.events) != 1 || pub.events[0].Action != core.MutationCreated || pub.events[0].Source != "web" ||
		pub.events[0].Amount == nil || pub.events[0].Amount.IntPart() != 250000 {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestCreateFailureKeepsForm(t *testing.T) {
	w := &countingWriter{ok: false}
	r := &countingReloader{}
	c := New(w, r, nil)
	f := &Form{Kind: core.Expense, Amount: "1200", Category: "Food", Date: "2024-03-01"}

	if err := c.Create(context.Background(), f); !errors.Is(err, ErrSubmitFailed) {
		t.Fatalf("Create() error = %v", err)
	}
	if f.Amount != "1200" || r.n != 0 {
		t.Fatalf("failed create must keep the form and skip reload: %+v reloads=%d", f, r.n)
	}
	if c.State() != IdleWithError || Message(c.LastError()) != "取引の保存に失敗しました" {
		t.Fatalf("state=%v lastErr=%v", c.State(), c.LastError())
	}
}

func TestSecondSubmissionRejectedWhileInFlight(t *testing.T) {
	w := &countingWriter{ok: true, block: make(chan struct{}), entered: make(chan struct{})}
	r := &countingReloader{}
	c := New(w, r, nil)

	done := make(chan error, 1)
	go func() {
		done <- c.Create(context.Background(), &Form{Kind: core.Expense, Amount: "1", Category: "Food", Date: "2024-01-01"})
	}()
	<-w.entered

	if c.State() != Submitting {
		t.Fatalf("state = %v, want submitting", c.State())
	}
	err := c.Create(context.Background(), &Form{Kind: core.Expense, Amount: "2", Category: "Food", Date: "2024-01-01"})
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("second Create() error = %v", err)
	}
	if err := c.DeleteKey(context.Background(), "x"); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("Delete() during create error = %v", err)
	}

	close(w.block)
	if err := <-done; err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if w.creates != 1 || w.deletes != 0 || c.State() != Idle {
		t.Fatalf("creates=%d deletes=%d state=%v", w.creates, w.deletes, c.State())
	}
}

func TestDeleteThenReloadOmitsID(t *testing.T) {
	ctx := context.Background()
	api := memory.New(nil)
	api.Seed(
		core.Transaction{Kind: core.Expense, Amount: core.AmountFromInt(100), Category: "食費", Date: core.NewDate(2024, 1, 1)},
		core.Transaction{Kind: core.Expense, Amount: core.AmountFromInt(200), Category: "食費", Date: core.NewDate(2024, 1, 2)},
	)
	gw := gateway.New(api, nil)
	agg := viewmodel.NewAggregator(gw, nil, nil)
	c := New(gw, agg, nil)

	snap := agg.Reload(ctx)
	target := snap.Transactions[0].ID
	if !snap.Contains(target.Normalize()) {
		t.Fatal("seeded transaction missing")
	}

	if err := c.Delete(ctx, target); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	after := agg.Store().Snapshot()
	if after.Contains(target.Normalize()) || len(after.Transactions) != 1 {
		t.Fatalf("deleted id still displayed: %+v", after.Transactions)
	}
}

func TestDeleteFailure(t *testing.T) {
	api := memory.New(nil)
	api.Fail(memory.OpDelete, &gateway.StatusError{Code: 500})
	gw := gateway.New(api, nil)
	r := &countingReloader{}
	c := New(gw, r, nil)

	err := c.Delete(context.Background(), core.ObjectID("transaction:1"))
	if !errors.Is(err, ErrDeleteFailed) || r.n != 0 {
		t.Fatalf("Delete() error = %v reloads=%d", err, r.n)
	}
	if Message(err) != "取引の削除に失敗しました" {
		t.Fatalf("Message() = %q", Message(err))
	}
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := New(&countingWriter{ok: true}, &countingReloader{}, nil, WithPublisher(pub, "cli"))
	if err := c.DeleteKey(context.Background(), "t1"); err != nil {
		t.Fatalf("DeleteKey() error = %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].ID != "t1" || pub.events[0].Action != core.MutationDeleted {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}
