package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage tells the worker that a transaction changed locally
// and must be mirrored to the remote store. It carries only identifiers; the
// worker fetches the full row from the local database.
type TransactionSyncMessage struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Deleted       bool      `json:"deleted"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates a sync message for an upserted transaction.
func NewTransactionSyncMessage(userID, transactionID string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// NewTransactionDeleteMessage creates a sync message for a deleted transaction.
func NewTransactionDeleteMessage(userID, transactionID string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Deleted:       true,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
