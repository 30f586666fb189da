package core

import "testing"

func TestIsLeapYear(t *testing.T) {
	cases := []struct {
		year int
		want bool
	}{
		{2000, true},  // divisible by 400
		{1900, false}, // century, not divisible by 400
		{2024, true},
		{2023, false},
		{2100, false},
		{1600, true},
	}
	for _, tc := range cases {
		if got := IsLeapYear(tc.year); got != tc.want {
			t.Errorf("IsLeapYear(%d) = %v, want %v", tc.year, got, tc.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		month, year int
		want        int
	}{
		{0, 2024, 31},  // January
		{1, 2024, 29},  // February, leap
		{1, 2023, 28},  // February, common
		{3, 2024, 30},  // April
		{6, 2024, 31},  // July
		{7, 2024, 31},  // August
		{11, 2024, 31}, // December
	}
	for _, tc := range cases {
		got, err := DaysInMonth(tc.month, tc.year)
		if err != nil {
			t.Fatalf("DaysInMonth(%d, %d): %v", tc.month, tc.year, err)
		}
		if got != tc.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tc.month, tc.year, got, tc.want)
		}
	}

	for _, month := range []int{-1, 12, 99} {
		if _, err := DaysInMonth(month, 2024); err != ErrInvalidMonth {
			t.Errorf("DaysInMonth(%d, 2024) err = %v, want ErrInvalidMonth", month, err)
		}
	}
}

func TestMonthGridSize(t *testing.T) {
	for year := 1999; year <= 2031; year++ {
		for month := 0; month < 12; month++ {
			cells, err := MonthGrid(month, year)
			if err != nil {
				t.Fatalf("MonthGrid(%d, %d): %v", month, year, err)
			}
			if len(cells) != GridCells {
				t.Fatalf("MonthGrid(%d, %d) returned %d cells, want %d", month, year, len(cells), GridCells)
			}
		}
	}
}

func TestMonthGridLayout(t *testing.T) {
	// March 2024: the 1st is a Friday (weekday 5), February 2024 has 29 days.
	cells, err := MonthGrid(2, 2024)
	if err != nil {
		t.Fatalf("MonthGrid: %v", err)
	}

	lead := []int{25, 26, 27, 28, 29}
	for i, want := range lead {
		if cells[i].InMonth || cells[i].Day != want {
			t.Fatalf("cell %d = %+v, want day %d of previous month", i, cells[i], want)
		}
	}
	if !cells[5].InMonth || cells[5].Day != 1 {
		t.Fatalf("cell 5 = %+v, want day 1 in month", cells[5])
	}
	if !cells[35].InMonth || cells[35].Day != 31 {
		t.Fatalf("cell 35 = %+v, want day 31 in month", cells[35])
	}
	// Trailing pad restarts at 1 in the next month.
	if cells[36].InMonth || cells[36].Day != 1 {
		t.Fatalf("cell 36 = %+v, want day 1 of next month", cells[36])
	}
	if cells[41].InMonth || cells[41].Day != 6 {
		t.Fatalf("cell 41 = %+v, want day 6 of next month", cells[41])
	}
}

func TestMonthGridInvalidMonth(t *testing.T) {
	if _, err := MonthGrid(12, 2024); err != ErrInvalidMonth {
		t.Fatalf("MonthGrid(12, 2024) err = %v, want ErrInvalidMonth", err)
	}
}
