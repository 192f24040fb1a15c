package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the queries inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type SnapshotRow struct {
	Profile string
	Payload string
	Token   int64
	TxCount int64
	SavedAt time.Time
}

const upsertSnapshot = `
INSERT INTO snapshots (profile, payload, token, tx_count, saved_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(profile) DO UPDATE SET
    payload  = excluded.payload,
    token    = excluded.token,
    tx_count = excluded.tx_count,
    saved_at = excluded.saved_at
`

func (q *Queries) UpsertSnapshot(ctx context.Context, arg SnapshotRow) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, arg.Profile, arg.Payload, arg.Token, arg.TxCount, arg.SavedAt.UTC())
	return err
}

const getSnapshot = `
SELECT profile, payload, token, tx_count, saved_at FROM snapshots WHERE profile = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, profile string) (SnapshotRow, error) {
	var row SnapshotRow
	err := q.db.QueryRowContext(ctx, getSnapshot, profile).Scan(&row.Profile, &row.Payload, &row.Token, &row.TxCount, &row.SavedAt)
	return row, err
}

const deleteSnapshot = `DELETE FROM snapshots WHERE profile = ?`

func (q *Queries) DeleteSnapshot(ctx context.Context, profile string) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshot, profile)
	return err
}

type MutationRow struct {
	ID        int64
	Profile   string
	Action    string
	RecordID  string
	Payload   string
	CreatedAt time.Time
}

const insertMutation = `
INSERT INTO mutation_log (profile, action, record_id, payload, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) InsertMutation(ctx context.Context, arg MutationRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertMutation, arg.Profile, arg.Action, arg.RecordID, arg.Payload, arg.CreatedAt.UTC()).Scan(&id)
	return id, err
}

const listMutations = `
SELECT id, profile, action, record_id, payload, created_at
FROM mutation_log
WHERE profile = ?
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListMutations(ctx context.Context, profile string, limit int64) ([]MutationRow, error) {
	rows, err := q.db.QueryContext(ctx, listMutations, profile, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MutationRow
	for rows.Next() {
		var m MutationRow
		if err := rows.Scan(&m.ID, &m.Profile, &m.Action, &m.RecordID, &m.Payload, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}
