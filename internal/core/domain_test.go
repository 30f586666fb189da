package core

import (
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:     Expense,
		Amount:   Money{Cents: 1500},
		Category: Category{ID: "food", Name: "Food", Icon: "restaurant-outline"},
		Note:     "lunch",
		Date:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Transaction)
		want error
	}{
		{"unknown type", func(tx *Transaction) { tx.Type = "TRANSFER" }, ErrInvalidType},
		{"zero amount", func(tx *Transaction) { tx.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount.Cents = -100 }, ErrInvalidAmount},
		{"blank category", func(tx *Transaction) { tx.Category.Name = "  " }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrMissingDate},
		{"note too long", func(tx *Transaction) { tx.Note = strings.Repeat("a", 501) }, ErrNoteTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := good
			tc.mut(&bad)
			if err := bad.Validate(); err != tc.want {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTransactionNormalized(t *testing.T) {
	hanoi := time.FixedZone("ICT", 7*3600)
	in := Transaction{
		Type:   Expense,
		Amount: Money{Cents: -50000}, // legacy negated expense
		Date:   time.Date(2024, 3, 5, 1, 0, 0, 0, hanoi),
	}
	out := in.Normalized()

	if out.Amount.Cents != 50000 {
		t.Errorf("Amount = %d, want 50000", out.Amount.Cents)
	}
	if out.Date.Location() != time.UTC {
		t.Errorf("Date not normalized to UTC: %v", out.Date)
	}
	// Input is untouched.
	if in.Amount.Cents != -50000 {
		t.Errorf("input mutated: %d", in.Amount.Cents)
	}
}

func TestTransactionSigned(t *testing.T) {
	e := Transaction{Type: Expense, Amount: Money{Cents: 3000}}
	if e.Signed() != -3000 {
		t.Fatalf("expense Signed() = %d, want -3000", e.Signed())
	}
	i := Transaction{Type: Income, Amount: Money{Cents: 3000}}
	if i.Signed() != 3000 {
		t.Fatalf("income Signed() = %d, want 3000", i.Signed())
	}
}

func TestTransactionTypeValid(t *testing.T) {
	if !Income.Valid() || !Expense.Valid() {
		t.Fatal("enum members reported invalid")
	}
	if TransactionType("income").Valid() {
		t.Fatal("lowercase variant accepted")
	}
}
