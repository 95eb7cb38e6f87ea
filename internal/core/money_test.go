package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"-1,23", -123, true},
		{"+4.5", 450, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half-up rounding
		{"-1.005", -101, true},
		{" 2.50 ", 250, true},
		{"12,50 €", 1250, true},
		{"1.234,56", 123456, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseDecimalToCentsRejectsNonPositive(t *testing.T) {
	for _, in := range []string{"0", "-1", "-0.01"} {
		if _, err := ParseDecimalToCents(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
	if got, err := ParseDecimalToCents("3,10"); err != nil || got != 310 {
		t.Fatalf("expected 310, got %d (err=%v)", got, err)
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0,00 €"},
		{5, "0,05 €"},
		{1234, "12,34 €"},
		{-5000, "-50,00 €"},
		{-5, "-0,05 €"},
		{99999, "999,99 €"},
		{123456, "1.234,56 €"},
		{-123456789, "-1.234.567,89 €"},
		{100000000, "1.000.000,00 €"},
	}
	for _, tc := range cases {
		got := (Money{Cents: tc.cents}).Format()
		if got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.cents, got, tc.want)
		}
		back, err := ParseAmount(got)
		if err != nil || back.Cents != tc.cents {
			t.Errorf("ParseAmount(%q) = %d, %v; want %d", got, back.Cents, err, tc.cents)
		}
	}
	if got := (Money{Cents: -1234}).String(); got != "-12.34" {
		t.Errorf("String() = %q", got)
	}
}

func TestMin(t *testing.T) {
	if got := Min(Money{Cents: 3}, Money{Cents: 7}); got.Cents != 3 {
		t.Fatalf("Min = %d", got.Cents)
	}
	if got := Min(Money{Cents: 9}, Money{Cents: -1}); got.Cents != -1 {
		t.Fatalf("Min = %d", got.Cents)
	}
}
