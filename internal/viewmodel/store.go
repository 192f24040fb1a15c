// Package viewmodel owns the per-screen view state built from the three
// finance API resources.
//
// State lives in a Store and changes only through Dispatch. Every Dispatch
// runs the pure Reduce function and publishes a new Snapshot; snapshots are
// never modified after they are published, so renderers can hold on to one
// without locking.
package viewmodel

import (
	"sync"
	"time"

	"pfm/internal/core"
)

// ErrorBanner is shown when any resource of a reload could not be loaded.
const ErrorBanner = "データの読み込みに失敗しました"

// Snapshot is an immutable view of the screen state. Callers must not modify
// the slices or the summary it references.
type Snapshot struct {
	Transactions []core.Transaction `json:"transactions"`
	Categories   []core.Category    `json:"categories"`
	Summary      *core.Summary      `json:"summary"`

	Loading  bool      `json:"loading"`
	Error    string    `json:"error,omitempty"`
	Token    uint64    `json:"token"`
	LoadedAt time.Time `json:"loaded_at"`

	// Stale is set after a mutation so the next render triggers a reload.
	// Only a reload started after the mutation clears it.
	Stale      bool `json:"stale"`
	staleAfter uint64
}

// Empty is the state before the first load.
func Empty() Snapshot {
	return Snapshot{
		Transactions: []core.Transaction{},
		Categories:   []core.Category{},
	}
}

type (
	// Action is a discrete state change accepted by Reduce.
	Action interface{ action() }

	ReloadStarted struct{ Token uint64 }

	TransactionsLoaded struct {
		Token uint64
		Items []core.Transaction
	}

	CategoriesLoaded struct {
		Token uint64
		Items []core.Category
	}

	// SummaryLoaded with a nil Summary means the server reported none.
	SummaryLoaded struct {
		Token   uint64
		Summary *core.Summary
	}

	ResourceFailed struct {
		Token    uint64
		Resource core.Resource
	}

	ReloadFinished struct {
		Token uint64
		At    time.Time
	}

	// MutationSucceeded marks the state stale after a create or delete,
	// local or reported by another surface.
	MutationSucceeded struct{}

	// SnapshotRestored replaces the state with a previously saved snapshot.
	// Ignored while a reload is in flight.
	SnapshotRestored struct{ Snapshot Snapshot }
)

func (ReloadStarted) action()      {}
func (TransactionsLoaded) action() {}
func (CategoriesLoaded) action()   {}
func (SummaryLoaded) action()      {}
func (ResourceFailed) action()     {}
func (ReloadFinished) action()     {}
func (MutationSucceeded) action()  {}
func (SnapshotRestored) action()   {}

// Reduce applies a to s. applied is false when the action belongs to a
// superseded reload and was dropped.
func Reduce(s Snapshot, a Action) (next Snapshot, applied bool) {
	switch a := a.(type) {
	case ReloadStarted:
		if a.Token <= s.Token {
			return s, false
		}
		s.Token = a.Token
		s.Loading = true
		s.Error = ""
		return s, true

	case TransactionsLoaded:
		if a.Token != s.Token {
			return s, false
		}
		s.Transactions = nonNil(a.Items)
		return s, true

	case CategoriesLoaded:
		if a.Token != s.Token {
			return s, false
		}
		s.Categories = nonNil(a.Items)
		return s, true

	case SummaryLoaded:
		if a.Token != s.Token {
			return s, false
		}
		s.Summary = a.Summary
		return s, true

	case ResourceFailed:
		if a.Token != s.Token {
			return s, false
		}
		// prior value of the resource stays displayed
		s.Error = ErrorBanner
		return s, true

	case ReloadFinished:
		if a.Token != s.Token {
			return s, false
		}
		s.Loading = false
		s.LoadedAt = a.At
		if s.Error == "" && a.Token > s.staleAfter {
			s.Stale = false
		}
		return s, true

	case MutationSucceeded:
		s.Stale = true
		s.staleAfter = s.Token
		return s, true

	case SnapshotRestored:
		if s.Loading {
			return s, false
		}
		r := a.Snapshot
		r.Token = s.Token
		r.staleAfter = s.staleAfter
		r.Loading = false
		r.Transactions = nonNil(r.Transactions)
		r.Categories = nonNil(r.Categories)
		return r, true
	}
	return s, false
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Store is the state container of one screen.
type Store struct {
	mu        sync.Mutex
	state     Snapshot
	nextToken uint64
}

func NewStore() *Store {
	return &Store{state: Empty()}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces a into the state and reports whether it was applied.
func (s *Store) Dispatch(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, applied := Reduce(s.state, a)
	if applied {
		s.state = next
	}
	return applied
}

// Begin issues a new reload token and dispatches ReloadStarted for it.
// Tokens increase monotonically, so a later Begin supersedes every earlier one.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextToken < s.state.Token {
		s.nextToken = s.state.Token
	}
	s.nextToken++
	s.state, _ = Reduce(s.state, ReloadStarted{Token: s.nextToken})
	return s.nextToken
}
