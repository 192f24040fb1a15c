package viewmodel

import (
	"testing"
	"time"

	"pfm/internal/core"
)

func TestReduceDropsSupersededResults(t *testing.T) {
	s := Empty()
	s, _ = Reduce(s, ReloadStarted{Token: 1})
	s, _ = Reduce(s, ReloadStarted{Token: 2})

	if _, applied := Reduce(s, TransactionsLoaded{Token: 1, Items: []core.Transaction{{}}}); applied {
		t.Fatal("result of reload 1 applied after reload 2 started")
	}
	if _, applied := Reduce(s, ReloadStarted{Token: 1}); applied {
		t.Fatal("older token restarted a reload")
	}
	next, applied := Reduce(s, TransactionsLoaded{Token: 2, Items: []core.Transaction{{}}})
	if !applied || len(next.Transactions) != 1 {
		t.Fatalf("current result not applied: %+v", next)
	}
}

func TestReduceFailureKeepsPriorValue(t *testing.T) {
	prior := []core.Category{{Name: "Food", Kind: core.Expense}}
	s := Empty()
	s, _ = Reduce(s, ReloadStarted{Token: 1})
	s, _ = Reduce(s, CategoriesLoaded{Token: 1, Items: prior})
	s, _ = Reduce(s, ReloadFinished{Token: 1})
	if s.Loading || s.Error != "" {
		t.Fatalf("unexpected state after clean reload: %+v", s)
	}

	s, _ = Reduce(s, ReloadStarted{Token: 2})
	s, _ = Reduce(s, ResourceFailed{Token: 2, Resource: core.ResourceCategories})
	s, _ = Reduce(s, ReloadFinished{Token: 2})
	if len(s.Categories) != 1 || s.Categories[0].Name != "Food" {
		t.Fatalf("failed reload should keep prior categories, got %+v", s.Categories)
	}
	if s.Error != ErrorBanner {
		t.Fatalf("Error = %q, want banner", s.Error)
	}

	s, _ = Reduce(s, ReloadStarted{Token: 3})
	if s.Error != "" {
		t.Fatal("a new reload clears the banner")
	}
}

func TestReduceNilItemsBecomeEmpty(t *testing.T) {
	s, _ := Reduce(Snapshot{}, ReloadStarted{Token: 1})
	s, _ = Reduce(s, TransactionsLoaded{Token: 1})
	if s.Transactions == nil {
		t.Fatal("nil transactions must become an empty list")
	}
}

func TestStaleClearedOnlyByLaterReload(t *testing.T) {
	store := NewStore()
	first := store.Begin()
	store.Dispatch(MutationSucceeded{})
	store.Dispatch(ReloadFinished{Token: first})
	if !store.Snapshot().Stale {
		t.Fatal("reload started before the mutation must not clear Stale")
	}

	second := store.Begin()
	store.Dispatch(ReloadFinished{Token: second, At: time.Unix(10, 0)})
	snap := store.Snapshot()
	if snap.Stale || !snap.LoadedAt.Equal(time.Unix(10, 0)) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestStoreBeginIsMonotonic(t *testing.T) {
	store := NewStore()
	var last uint64
	for i := 0; i < 5; i++ {
		tok := store.Begin()
		if tok <= last {
			t.Fatalf("token %d not greater than %d", tok, last)
		}
		last = tok
	}
	if snap := store.Snapshot(); snap.Token != last || !snap.Loading {
		t.Fatalf("snapshot token=%d loading=%v", snap.Token, snap.Loading)
	}
}

func TestSnapshotsAreIndependent(t *testing.T) {
	store := NewStore()
	tok := store.Begin()
	store.Dispatch(TransactionsLoaded{Token: tok, Items: []core.Transaction{{Category: "a"}}})
	before := store.Snapshot()

	tok = store.Begin()
	store.Dispatch(TransactionsLoaded{Token: tok, Items: []core.Transaction{{Category: "b"}, {Category: "c"}}})

	if len(before.Transactions) != 1 || before.Transactions[0].Category != "a" {
		t.Fatalf("earlier snapshot changed: %+v", before.Transactions)
	}
}

func TestSnapshotRestored(t *testing.T) {
	saved := Snapshot{
		Transactions: []core.Transaction{{ID: core.StringID("t1")}},
		Summary:      &core.Summary{Balance: core.AmountFromInt(3)},
	}
	store := NewStore()
	if !store.Dispatch(SnapshotRestored{Snapshot: saved}) {
		t.Fatal("restore on idle store not applied")
	}
	snap := store.Snapshot()
	if !snap.Contains("t1") || snap.Categories == nil {
		t.Fatalf("unexpected restored snapshot: %+v", snap)
	}

	store.Begin()
	if store.Dispatch(SnapshotRestored{Snapshot: Empty()}) {
		t.Fatal("restore must not interrupt a reload")
	}
}
