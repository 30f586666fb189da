package core

import "time"

// GridCells is the fixed size of a month grid: six rows of seven weekdays.
// The date picker relies on the grid never changing shape between months.
const GridCells = 42

// DayCell is one cell of a month grid. Cells padded from the adjacent
// months carry InMonth=false.
type DayCell struct {
	Day     int
	InMonth bool
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month. The month is
// 0-indexed (0=January .. 11=December), which is the convention the grid
// builder and the date picker share. Out-of-range months are a caller bug
// and are rejected, never clamped.
func DaysInMonth(month, year int) (int, error) {
	switch month {
	case 0, 2, 4, 6, 7, 9, 11:
		return 31, nil
	case 3, 5, 8, 10:
		return 30, nil
	case 1:
		if IsLeapYear(year) {
			return 29, nil
		}
		return 28, nil
	default:
		return 0, ErrInvalidMonth
	}
}

// MonthGrid builds the 42-cell calendar grid for a 0-indexed month: the
// trailing days of the previous month up to the weekday of the 1st
// (0=Sunday), the month itself, then leading days of the next month until
// exactly GridCells cells exist.
func MonthGrid(month, year int) ([]DayCell, error) {
	days, err := DaysInMonth(month, year)
	if err != nil {
		return nil, err
	}

	prevMonth, prevYear := month-1, year
	if prevMonth < 0 {
		prevMonth, prevYear = 11, year-1
	}
	prevDays, err := DaysInMonth(prevMonth, prevYear)
	if err != nil {
		return nil, err
	}

	firstWeekday := int(time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Weekday())

	cells := make([]DayCell, 0, GridCells)
	for i := firstWeekday - 1; i >= 0; i-- {
		cells = append(cells, DayCell{Day: prevDays - i})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, DayCell{Day: d, InMonth: true})
	}
	for d := 1; len(cells) < GridCells; d++ {
		cells = append(cells, DayCell{Day: d})
	}
	return cells, nil
}
