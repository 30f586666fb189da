package core

import (
	"fmt"
	"time"
)

// Period selects a calendar month for filtering and aggregation.
// Month is 1-indexed (1=January .. 12=December); Year is unbounded.
type Period struct {
	Month int
	Year  int
}

// PeriodOf returns the period containing t's calendar month.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// CurrentPeriod returns the period of the current wall-clock month.
func CurrentPeriod() Period {
	return PeriodOf(time.Now())
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Prev returns the preceding month, rolling January back into December of
// the previous year.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Next returns the following month, rolling December into January of the
// next year.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Contains reports whether t falls inside the period, comparing calendar
// month and year components of the logical date only.
func (p Period) Contains(t time.Time) bool {
	return int(t.Month()) == p.Month && t.Year() == p.Year
}

// GridMonth returns the 0-indexed month used by the calendar grid helpers.
func (p Period) GridMonth() int {
	return p.Month - 1
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
