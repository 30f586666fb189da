package core

import (
	"fmt"
	"sort"
	"time"
)

type (
	// DayKey identifies a calendar day with no time component. Two logical
	// dates on the same day always collide to the same key regardless of
	// time-of-day (dates are normalized to UTC at the ingest boundary).
	DayKey struct {
		Year  int
		Month int
		Day   int
	}

	// DayGroup is the per-day bucket of the grouped transaction view.
	// Transactions keep input encounter order; the sums are magnitudes.
	DayGroup struct {
		Key          DayKey
		TotalExpense Money
		TotalIncome  Money
		Transactions []Transaction
	}

	// SkippedRecord reports a transaction excluded from aggregation because
	// its record was malformed. The rest of the batch is unaffected.
	SkippedRecord struct {
		ID  string
		Err error
	}

	// Summary is the full aggregation output for one period: scalar totals
	// plus the date-grouped breakdown, newest day first.
	Summary struct {
		Period       Period
		TotalExpense Money
		TotalIncome  Money
		TotalBalance Money
		Groups       []DayGroup
		Skipped      []SkippedRecord
	}
)

// DayKeyOf truncates t to its calendar day.
func DayKeyOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: int(m), Day: d}
}

// Before reports whether k is an earlier day than other.
func (k DayKey) Before(other DayKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
}

// Aggregate filters txs to the given period, sums income and expense
// magnitudes, and groups the matches by calendar day, newest day first.
//
// The input is treated as an immutable, unordered snapshot; the function is
// pure and deterministic, so running it twice on the same input yields a
// deeply equal Summary. Records with a zero logical date are skipped and
// reported in Summary.Skipped rather than failing the batch. Magnitudes are
// taken with absolute value so that legacy records with negated expense
// amounts still sum correctly.
func Aggregate(txs []Transaction, period Period) Summary {
	s := Summary{Period: period}
	byDay := make(map[DayKey]int)

	for _, tx := range txs {
		if tx.Date.IsZero() {
			s.Skipped = append(s.Skipped, SkippedRecord{ID: tx.ID, Err: ErrMissingDate})
			continue
		}
		if !period.Contains(tx.Date) {
			continue
		}

		amount := tx.Amount.Abs()
		key := DayKeyOf(tx.Date)
		idx, ok := byDay[key]
		if !ok {
			idx = len(s.Groups)
			byDay[key] = idx
			s.Groups = append(s.Groups, DayGroup{Key: key})
		}
		g := &s.Groups[idx]

		switch tx.Type {
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(amount)
			g.TotalExpense = g.TotalExpense.Add(amount)
		default:
			s.TotalIncome = s.TotalIncome.Add(amount)
			g.TotalIncome = g.TotalIncome.Add(amount)
		}
		g.Transactions = append(g.Transactions, tx)
	}

	s.TotalBalance = s.TotalIncome.Sub(s.TotalExpense)

	sort.Slice(s.Groups, func(i, j int) bool {
		return s.Groups[j].Key.Before(s.Groups[i].Key)
	})
	return s
}

// FilteredCount returns the number of transactions across all groups.
func (s Summary) FilteredCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Transactions)
	}
	return n
}
