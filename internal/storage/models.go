package storage

import "time"

type Player struct {
	Key     string
	Level   int
	XPTotal int
}

type BadgeRecord struct {
	ID         string
	UnlockedAt time.Time
	Notified   bool
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// parseTime tolerates empty and malformed values by returning the zero time;
// callers treat a zero completion time as "no contribution".
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}
