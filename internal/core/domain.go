package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type (
	// TransactionType is the closed income/expense enumeration. The wire
	// strings match the documents written by the mobile client.
	TransactionType string

	Money struct {
		Cents int64
	}

	// Category is the snapshot embedded in each transaction at creation
	// time. It is deliberately not a reference: renaming a category later
	// must not rewrite history.
	Category struct {
		ID   string
		Name string
		Icon string
	}

	// Transaction is a single ledger entry. Amount is always a positive
	// magnitude; Type is the sole sign source. Date is the logical date the
	// user entered, distinct from CreatedAt which the store assigns.
	Transaction struct {
		ID        string
		Type      TransactionType
		Amount    Money
		Category  Category
		Note      string
		Date      time.Time
		CreatedAt time.Time
	}

	// Profile is the per-user account record kept alongside transactions.
	Profile struct {
		ID        string
		Name      string
		Email     string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrMissingDate   = errors.New("missing transaction date")
	ErrEmptyCategory = errors.New("empty category")
	ErrNoteTooLong   = errors.New("note too long (max 500 characters)")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Signed returns the amount with the historical sign convention applied:
// expenses negative, income positive. Only the interop layers use this;
// everything inside this module works on magnitudes.
func (t Transaction) Signed() int64 {
	if t.Type == Expense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Category.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if len(t.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}

// Normalized returns a copy with the magnitude convention enforced and the
// logical date anchored to UTC so day grouping never splits on time zone.
// Legacy producers stored expenses as negated values; the absolute value
// here is the single place that convention is absorbed.
func (t Transaction) Normalized() Transaction {
	if t.Amount.Cents < 0 {
		t.Amount.Cents = -t.Amount.Cents
	}
	if !t.Date.IsZero() {
		t.Date = t.Date.UTC()
	}
	return t
}
