package firestore

import (
	"math"
	"time"

	"cloud.google.com/go/firestore"

	"thuchi/internal/core"
)

// Document shapes as the mobile client writes them: the logical date is an
// ISO 8601 string, the amount a plain number in whole currency units, and
// legacy documents carry expenses negated.
type (
	categoryDoc struct {
		ID   string `firestore:"id"`
		Name string `firestore:"name"`
		Icon string `firestore:"icon"`
	}

	transactionDoc struct {
		Type      string      `firestore:"type"`
		Amount    float64     `firestore:"amount"`
		Category  categoryDoc `firestore:"category"`
		Note      string      `firestore:"note"`
		Date      string      `firestore:"date"`
		CreatedAt time.Time   `firestore:"createdAt,serverTimestamp"`
	}

	profileDoc struct {
		Name      string    `firestore:"name"`
		Email     string    `firestore:"email"`
		CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
	}
)

// encodeTransaction writes the historical wire form, signed amount
// included, so existing mobile builds keep rendering the documents.
func encodeTransaction(tx core.Transaction) transactionDoc {
	return transactionDoc{
		Type:     string(tx.Type),
		Amount:   float64(tx.Signed()) / 100,
		Category: categoryDoc(tx.Category),
		Note:     tx.Note,
		Date:     tx.Date.UTC().Format(time.RFC3339),
	}
}

// decodeTransaction absorbs every legacy quirk in one place: missing type
// defaults to EXPENSE, signed amounts become magnitudes, and an
// unparseable date yields a zero Date that the aggregation pipeline
// reports as a skipped record instead of failing the batch.
func decodeTransaction(id string, doc transactionDoc) core.Transaction {
	typ := core.TransactionType(doc.Type)
	if !typ.Valid() {
		typ = core.Expense
	}

	var date time.Time
	if doc.Date != "" {
		if parsed, err := time.Parse(time.RFC3339, doc.Date); err == nil {
			date = parsed.UTC()
		}
	}

	return core.Transaction{
		ID:        id,
		Type:      typ,
		Amount:    core.Money{Cents: int64(math.Round(math.Abs(doc.Amount) * 100))},
		Category:  core.Category(doc.Category),
		Note:      doc.Note,
		Date:      date,
		CreatedAt: doc.CreatedAt,
	}
}

func decodeSnapshotDoc(doc *firestore.DocumentSnapshot) core.Transaction {
	var td transactionDoc
	if err := doc.DataTo(&td); err != nil {
		// Keep the record visible as malformed rather than dropping it.
		return core.Transaction{ID: doc.Ref.ID, Type: core.Expense}
	}
	return decodeTransaction(doc.Ref.ID, td)
}
