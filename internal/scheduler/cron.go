package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// matchesCron evaluates a five-field cron expression (minute, hour,
// day-of-month, month, day-of-week) against a wall-clock instant. Only `*`
// and plain numbers are matched; anything else in a field is treated as
// non-matching rather than an error, so a bad expression can never take the
// poller down.
func matchesCron(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}

	current := []int{
		t.Minute(),
		t.Hour(),
		t.Day(),
		int(t.Month()),
		int(t.Weekday()),
	}

	for i, field := range fields {
		if field == "*" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n != current[i] {
			return false
		}
	}
	return true
}
