package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"thuchi/internal/amqp"
	"thuchi/internal/core"
	"thuchi/internal/store"
	"thuchi/internal/store/sqlite"
)

// RemoteStore is the remote side of the mirror. Put keeps the local buffer
// id as the remote document id so deletions line up.
type RemoteStore interface {
	Put(ctx context.Context, userID string, tx core.Transaction) error
	Delete(ctx context.Context, userID, id string) error
}

// SyncWorker mirrors locally buffered transactions to the remote store.
type SyncWorker struct {
	local     *sqlite.Repository
	remote    RemoteStore
	batchSize int
}

func NewSyncWorker(local *sqlite.Repository, remote RemoteStore, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		local:     local,
		remote:    remote,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"user_id", msg.UserID,
		"transaction_id", msg.TransactionID,
		"deleted", msg.Deleted)

	if msg.Deleted {
		return w.mirrorDelete(ctx, msg.UserID, msg.TransactionID)
	}
	return w.mirrorUpsert(ctx, msg.TransactionID)
}

func (w *SyncWorker) mirrorUpsert(ctx context.Context, id string) error {
	tx, userID, err := w.local.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from local store: %w", err)
	}

	if err := w.remote.Put(ctx, userID, tx); err != nil {
		if markErr := w.local.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "transaction_id", id, "error", markErr)
		}
		return fmt.Errorf("mirror transaction to remote store: %w", err)
	}

	if err := w.local.MarkSynced(ctx, id); err != nil {
		// The mirror itself worked, keep going.
		slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"user_id", userID,
		"transaction_id", id,
		"amount_cents", tx.Amount.Cents)
	return nil
}

func (w *SyncWorker) mirrorDelete(ctx context.Context, userID, id string) error {
	err := w.remote.Delete(ctx, userID, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		if markErr := w.local.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "transaction_id", id, "error", markErr)
		}
		return fmt.Errorf("delete transaction from remote store: %w", err)
	}
	// A remote record that is already gone counts as mirrored.

	if err := w.local.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction deletion mirrored",
		"user_id", userID,
		"transaction_id", id)
	return nil
}

// ProcessPending mirrors any transactions that have not been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.local.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		var err error
		if p.Deleted {
			err = w.mirrorDelete(ctx, p.UserID, p.ID)
		} else {
			err = w.mirrorUpsert(ctx, p.ID)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending transaction",
				"transaction_id", p.ID, "error", err)
		}
	}

	return nil
}

// StartupSyncCheck mirrors the pending backlog at worker startup, recovering
// from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.local.ListPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		var err error
		if p.Deleted {
			err = w.mirrorDelete(ctx, p.UserID, p.ID)
		} else {
			err = w.mirrorUpsert(ctx, p.ID)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"transaction_id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// RunSweeper periodically re-mirrors the pending backlog until the context
// is cancelled.
func (w *SyncWorker) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}
