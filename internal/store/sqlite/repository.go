// Package sqlite implements the transaction store on a local SQLite
// database. It doubles as the durable write buffer in front of the remote
// document store: rows are created in sync_status 'pending' and the sync
// worker moves them to 'synced' once they reach the remote side.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"thuchi/internal/core"
	"thuchi/internal/store"
)

// Sync lifecycle states of a buffered row.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// PendingTransaction is the minimal row view the sync worker needs.
type PendingTransaction struct {
	ID        string
	UserID    string
	Deleted   bool
	CreatedAt time.Time
}

type Repository struct {
	db  *sql.DB
	hub *watchHub
}

var _ store.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
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

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, hub: newWatchHub()}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements store.TransactionWriter
func (r *Repository) Append(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	tx = tx.Normalized()
	if err := tx.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions (id, user_id, type, amount_cents, category_id, category_name, category_icon, note, date, created_at, sync_status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, string(tx.Type), tx.Amount.Cents,
		tx.Category.ID, tx.Category.Name, tx.Category.Icon,
		tx.Note, tx.Date, time.Now().UTC(), SyncPending)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction buffered in SQLite",
		"transaction_id", id,
		"user_id", userID,
		"transaction_type", string(tx.Type),
		"amount_cents", tx.Amount.Cents)

	r.notify(ctx, userID)
	return id, nil
}

// Delete implements store.TransactionDeleter. Rows are soft deleted so the
// sync worker can still propagate the removal to the remote store.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE transactions SET deleted_at = ?, sync_status = ?
	WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), SyncPending, id, userID)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction soft deleted", "transaction_id", id, "user_id", userID)
	r.notify(ctx, userID)
	return nil
}

// ListAll implements store.TransactionLister
func (r *Repository) ListAll(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, type, amount_cents, category_id, category_name, category_icon, note, date, created_at
	FROM transactions
	WHERE user_id = ? AND deleted_at IS NULL
	ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var typ string
		if err := rows.Scan(&tx.ID, &typ, &tx.Amount.Cents,
			&tx.Category.ID, &tx.Category.Name, &tx.Category.Icon,
			&tx.Note, &tx.Date, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(typ)
		out = append(out, tx.Normalized())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Watch implements store.TransactionWatcher. SQLite has no push channel of
// its own, so change notification is an in-process hub fed by Append and
// Delete on this repository.
func (r *Repository) Watch(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error) {
	snapshot, err := r.ListAll(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := r.hub.subscribe(userID, snapshot)
	return ch, cancel, nil
}

func (r *Repository) notify(ctx context.Context, userID string) {
	snapshot, err := r.ListAll(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot for watchers failed", "user_id", userID, "error", err)
		return
	}
	r.hub.publish(userID, snapshot)
}

// GetTransaction returns a single row by id, including soft-deleted ones;
// the sync worker needs those to propagate deletions.
func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, string, error) {
	var tx core.Transaction
	var typ, userID string
	err := r.db.QueryRowContext(ctx, `
	SELECT id, user_id, type, amount_cents, category_id, category_name, category_icon, note, date, created_at
	FROM transactions WHERE id = ?`, id).
		Scan(&tx.ID, &userID, &typ, &tx.Amount.Cents,
			&tx.Category.ID, &tx.Category.Name, &tx.Category.Icon,
			&tx.Note, &tx.Date, &tx.CreatedAt)
	if err == sql.ErrNoRows {
		return core.Transaction{}, "", store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, "", fmt.Errorf("get transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	return tx.Normalized(), userID, nil
}

// ListPendingSync returns up to limit rows waiting for the sync worker.
func (r *Repository) ListPendingSync(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, user_id, deleted_at IS NOT NULL, created_at
	FROM transactions
	WHERE sync_status = ?
	ORDER BY created_at ASC
	LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingTransaction
	for rows.Next() {
		var p PendingTransaction
		if err := rows.Scan(&p.ID, &p.UserID, &p.Deleted, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a row as successfully mirrored to the remote store.
func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `
	UPDATE transactions SET sync_status = ?, synced_at = ? WHERE id = ?`,
		SyncDone, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "transaction_id", id)
	return nil
}

// MarkSyncError marks a row whose remote mirror attempt failed.
func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `
	UPDATE transactions SET sync_status = ? WHERE id = ?`, SyncError, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "transaction_id", id)
	return nil
}

// GetProfile implements store.ProfileReader
func (r *Repository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	var p core.Profile
	err := r.db.QueryRowContext(ctx, `
	SELECT id, name, email, created_at FROM profiles WHERE id = ?`, userID).
		Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return core.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// PutProfile implements store.ProfileWriter
func (r *Repository) PutProfile(ctx context.Context, p core.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO profiles (id, name, email, created_at) VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		p.ID, p.Name, p.Email, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// UpdateName implements store.ProfileWriter
func (r *Repository) UpdateName(ctx context.Context, userID, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET name = ? WHERE id = ?`, name, userID)
	if err != nil {
		return fmt.Errorf("update profile name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// watchHub fans full-list snapshots out to in-process subscribers. Same
// latest-wins contract as the memory store: a slow consumer only ever sees
// the newest pending snapshot.
type watchHub struct {
	mu      sync.Mutex
	subs    map[string]map[int]chan []core.Transaction
	nextSub int
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[string]map[int]chan []core.Transaction)}
}

func (h *watchHub) subscribe(userID string, initial []core.Transaction) (<-chan []core.Transaction, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSub++
	id := h.nextSub
	ch := make(chan []core.Transaction, 1)
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan []core.Transaction)
	}
	h.subs[userID][id] = ch
	ch <- initial

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[userID][id]; ok {
			delete(h.subs[userID], id)
			close(sub)
		}
	}
	return ch, cancel
}

func (h *watchHub) publish(userID string, snapshot []core.Transaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
