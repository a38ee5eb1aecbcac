package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type DurationUnit string

const (
	UnitHours DurationUnit = "hours"
	UnitDays  DurationUnit = "days"
)

// MaxKeyHours caps key validity at ten years
const MaxKeyHours = 3650 * 24

var durationPattern = regexp.MustCompile(`^(?i)(\d+)(h|hours|d|days)$`)

// KeyDuration is the validity period attached to a key.
type KeyDuration struct {
	Value int
	Unit  DurationUnit
}

// DurationParseError carries the rejected input so callers can echo it back.
type DurationParseError struct {
	Input  string
	Reason string
}

func (e *DurationParseError) Error() string {
	return fmt.Sprintf("invalid duration %q: %s", e.Input, e.Reason)
}

// ParseKeyDuration accepts "24h", "12hours", "7d", "30days" (case-insensitive, no inner whitespace)
// up to MaxKeyHours.
func ParseKeyDuration(input string) (KeyDuration, error) {
	m := durationPattern.FindStringSubmatch(input)
	if m == nil {
		return KeyDuration{}, &DurationParseError{Input: input, Reason: "expected <number>h|hours|d|days"}
	}

	value, err := strconv.Atoi(m[1])
	if err != nil {
		return KeyDuration{}, &DurationParseError{Input: input, Reason: "number out of range"}
	}
	if value <= 0 {
		return KeyDuration{}, &DurationParseError{Input: input, Reason: "duration must be positive"}
	}

	unit := UnitHours
	if strings.HasPrefix(strings.ToLower(m[2]), "d") {
		unit = UnitDays
	}
	if value > MaxKeyHours || ToHours(value, unit) > MaxKeyHours {
		return KeyDuration{}, &DurationParseError{Input: input, Reason: "longer than 3650 days"}
	}

	return KeyDuration{Value: value, Unit: unit}, nil
}

// Hours converts the duration to whole hours.
func (d KeyDuration) Hours() int {
	return ToHours(d.Value, d.Unit)
}

func (d KeyDuration) String() string {
	return FormatDuration(d.Value, d.Unit)
}

func ToHours(value int, unit DurationUnit) int {
	if unit == UnitDays {
		return value * 24
	}
	return value
}

// FormatDuration renders a duration for display. Hour values of 24 or more
// are folded into days: 36 hours -> "1 days 12 hours", 48 hours -> "2 days".
func FormatDuration(value int, unit DurationUnit) string {
	if unit == UnitDays {
		return fmt.Sprintf("%d days", value)
	}

	if value < 24 {
		return fmt.Sprintf("%d hours", value)
	}

	days, hours := value/24, value%24
	if hours == 0 {
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d days %d hours", days, hours)
}

// IsValidUnit reports whether a persisted unit string is one we understand.
func IsValidUnit(unit string) bool {
	return unit == string(UnitHours) || unit == string(UnitDays)
}
