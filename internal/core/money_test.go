package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.5", 50, false},
		{"12.345", 1235, false}, // third decimal rounds half-up
		{"12.346", 1235, false},
		{"12.344", 1234, false},
		{"-12.34", 1234, false}, // legacy negated amount, sign dropped
		{"+7", 700, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
		{"0", 0, true},
		{"-0", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalToCents(%q) expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 300}
	b := Money{Cents: 120}
	if a.Add(b).Cents != 420 {
		t.Errorf("Add = %d", a.Add(b).Cents)
	}
	if a.Sub(b).Cents != 180 {
		t.Errorf("Sub = %d", a.Sub(b).Cents)
	}
	if (Money{Cents: -50}).Abs().Cents != 50 {
		t.Errorf("Abs failed")
	}
	if a.Units() != 3.0 {
		t.Errorf("Units = %f", a.Units())
	}
}
