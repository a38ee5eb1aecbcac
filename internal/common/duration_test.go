package common

import (
	"errors"
	"testing"
)

func TestParseKeyDuration(t *testing.T) {
	cases := []struct {
		in    string
		value int
		unit  DurationUnit
		hours int
	}{
		{"24h", 24, UnitHours, 24},
		{"12hours", 12, UnitHours, 12},
		{"7d", 7, UnitDays, 168},
		{"30days", 30, UnitDays, 720},
		{"30DAYS", 30, UnitDays, 720},
		{"5H", 5, UnitHours, 5},
		{"3650d", 3650, UnitDays, MaxKeyHours},
		{"87600h", 87600, UnitHours, MaxKeyHours},
	}

	for _, tc := range cases {
		got, err := ParseKeyDuration(tc.in)
		if err != nil {
			t.Fatalf("ParseKeyDuration(%q) unexpected error: %v", tc.in, err)
		}
		if got.Value != tc.value || got.Unit != tc.unit {
			t.Errorf("ParseKeyDuration(%q) = %+v, want %d %s", tc.in, got, tc.value, tc.unit)
		}
		if got.Hours() != tc.hours {
			t.Errorf("ParseKeyDuration(%q).Hours() = %d, want %d", tc.in, got.Hours(), tc.hours)
		}
	}
}

func TestParseKeyDuration_Invalid(t *testing.T) {
	for _, in := range []string{"", "30", "d30", "30 days", "30weeks", "0d", "-1h", " 7d", "7dd",
		"3651d", "87601h", "200000d", "99999999999999999999d"} {
		_, err := ParseKeyDuration(in)
		if err == nil {
			t.Errorf("ParseKeyDuration(%q) expected error", in)
			continue
		}

		var perr *DurationParseError
		if !errors.As(err, &perr) {
			t.Errorf("ParseKeyDuration(%q) error type %T, want *DurationParseError", in, err)
			continue
		}
		if perr.Input != in {
			t.Errorf("error should echo input %q, got %q", in, perr.Input)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		value int
		unit  DurationUnit
		want  string
	}{
		{30, UnitDays, "30 days"},
		{1, UnitDays, "1 days"},
		{36, UnitHours, "1 days 12 hours"},
		{24, UnitHours, "1 days"},
		{48, UnitHours, "2 days"},
		{23, UnitHours, "23 hours"},
		{12, UnitHours, "12 hours"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.value, tc.unit); got != tc.want {
			t.Errorf("FormatDuration(%d, %s) = %q, want %q", tc.value, tc.unit, got, tc.want)
		}
	}
}
