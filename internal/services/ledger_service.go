package services

import (
	"context"
	"fmt"
	"log/slog"

	"thuchi/internal/amqp"
	"thuchi/internal/core"
	"thuchi/internal/store"
)

// LedgerService orchestrates transaction writes across the local store and AMQP
type LedgerService struct {
	store      store.Store
	amqpClient *amqp.Client
}

func NewLedgerService(st store.Store, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      st,
		amqpClient: amqpClient,
	}
}

// CreateTransaction saves a transaction locally and publishes a sync message
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}

	// Save locally first (fast, reliable)
	id, err := s.store.Append(ctx, userID, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	// Publish async sync message (non-blocking)
	if err := s.publishSyncMessage(ctx, userID, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"user_id", userID, "transaction_id", id, "error", err)
		// Don't fail the request, the transaction is saved locally
	}

	return id, nil
}

// DeleteTransaction removes a transaction locally and publishes a delete message
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}

	// Publish async delete message (non-blocking)
	if err := s.publishDeleteMessage(ctx, userID, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"user_id", userID, "transaction_id", id, "error", err)
		// Don't fail the request, the transaction is deleted locally
	}

	return nil
}

// ListTransactions returns the user's full transaction list.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListAll(ctx, userID)
}

// Summarize aggregates the user's transactions for one period.
func (s *LedgerService) Summarize(ctx context.Context, userID string, period core.Period) (core.Summary, error) {
	if err := period.Validate(); err != nil {
		return core.Summary{}, err
	}

	txs, err := s.store.ListAll(ctx, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transactions: %w", err)
	}

	summary := core.Aggregate(txs, period)
	if len(summary.Skipped) > 0 {
		slog.WarnContext(ctx, "Skipped malformed transactions during aggregation",
			"user_id", userID,
			"period", period.String(),
			"skipped", len(summary.Skipped))
	}

	return summary, nil
}

func (s *LedgerService) publishSyncMessage(ctx context.Context, userID, id string) error {
	if s.amqpClient == nil {
		return nil
	}

	return s.amqpClient.PublishTransactionSync(ctx, userID, id)
}

func (s *LedgerService) publishDeleteMessage(ctx context.Context, userID, id string) error {
	if s.amqpClient == nil {
		return nil
	}

	return s.amqpClient.PublishTransactionDelete(ctx, userID, id)
}

// Close closes the AMQP connection if one is attached
func (s *LedgerService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close amqp client: %w", err)
		}
	}
	return nil
}
