// Package storage persists the terminal surface's last known view and its
// local mutation history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pfm/internal/core"
	"pfm/internal/log"
	"pfm/internal/viewmodel"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	profile string
	logger  *log.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it. profile scopes every row, typically the API base URL.
func NewSQLiteRepository(dbPath, profile string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		profile: profile,
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot stores snap as the last known view of the profile.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap viewmodel.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	savedAt := snap.LoadedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	err = r.queries.UpsertSnapshot(ctx, SnapshotRow{
		Profile: r.profile,
		Payload: string(payload),
		Token:   int64(snap.Token),
		TxCount: int64(len(snap.Transactions)),
		SavedAt: savedAt,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	r.logger.DebugContext(ctx, "Snapshot saved", log.FieldCount, len(snap.Transactions))
	return nil
}

// LoadSnapshot returns the last saved view. ok is false when none exists.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (snap viewmodel.Snapshot, ok bool, err error) {
	row, err := r.queries.GetSnapshot(ctx, r.profile)
	if errors.Is(err, sql.ErrNoRows) {
		return viewmodel.Empty(), false, nil
	}
	if err != nil {
		return viewmodel.Empty(), false, fmt.Errorf("get snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Payload), &snap); err != nil {
		return viewmodel.Empty(), false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// ClearSnapshot forgets the saved view.
func (r *SQLiteRepository) ClearSnapshot(ctx context.Context) error {
	if err := r.queries.DeleteSnapshot(ctx, r.profile); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// PublishMutation appends ev to the local mutation history.
func (r *SQLiteRepository) PublishMutation(ctx context.Context, ev core.MutationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode mutation: %w", err)
	}
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	id, err := r.queries.InsertMutation(ctx, MutationRow{
		Profile:   r.profile,
		Action:    ev.Action,
		RecordID:  ev.ID,
		Payload:   string(payload),
		CreatedAt: at,
	})
	if err != nil {
		return fmt.Errorf("record mutation: %w", err)
	}
	r.logger.DebugContext(ctx, "Mutation recorded", "id", id, log.FieldOperation, ev.Action)
	return nil
}

// History returns up to limit recorded mutations, newest first.
func (r *SQLiteRepository) History(ctx context.Context, limit int) ([]core.MutationEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.queries.ListMutations(ctx, r.profile, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	out := make([]core.MutationEvent, 0, len(rows))
	for _, row := range rows {
		var ev core.MutationEvent
		if err := json.Unmarshal([]byte(row.Payload), &ev); err != nil {
			r.logger.Warn("Skipping unreadable mutation row", "id", row.ID, log.FieldError, err.Error())
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
