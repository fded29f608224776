package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskquest/internal/model"
)

// Named rating presets accepted wherever a 0-100 difficulty or importance is expected.
var ratingPresets = map[string]int{
	"trivial":  10,
	"easy":     25,
	"medium":   50,
	"hard":     75,
	"epic":     100,
	"low":      25,
	"normal":   50,
	"high":     75,
	"critical": 100,
}

// ParseRating parses user input to a 0-100 rating.
// Supported: a plain integer, or trivial/easy/medium/hard/epic, low/normal/high/critical.
// Empty input returns def.
func ParseRating(field, input string, def int) (int, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return def, nil
	}
	if v, ok := ratingPresets[s]; ok {
		return v, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a number or preset", input)}
	}
	if v < MinRating || v > MaxRating {
		return 0, ValidationError{Field: field, Reason: fmt.Sprintf("%d is outside %d-%d", v, MinRating, MaxRating)}
	}
	return v, nil
}

// ParseDeadline parses a deadline relative to now's calendar day.
// Supported: "", today, tomorrow, +Nd, YYYY-MM-DD.
func ParseDeadline(input string, now time.Time) (*model.Date, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	today := model.DateOf(now)
	switch {
	case s == "":
		return nil, nil
	case s == "today":
		return &today, nil
	case s == "tomorrow":
		d := today.AddDays(1)
		return &d, nil
	case strings.HasPrefix(s, "+") && strings.HasSuffix(s, "d"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, "+"), "d"))
		if err != nil || n < 0 {
			return nil, ValidationError{Field: "deadline", Reason: fmt.Sprintf("bad offset %q", input)}
		}
		d := today.AddDays(n)
		return &d, nil
	default:
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, ValidationError{Field: "deadline", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", input)}
		}
		return &d, nil
	}
}
