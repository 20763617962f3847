package txgraph

import (
	"errors"
	"strings"
	"time"
)

var errUnparseableTimestamp = errors.New("unparseable timestamp")

// Layouts without a zone are read as UTC. Offsets may be written as +hh:mm,
// +hhmm or +hh; the basic form omits date and time separators.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"20060102T150405.999999999Z07:00",
	"20060102T150405.999999999Z0700",
	"20060102T150405.999999999Z07",
	"20060102T150405.999999999",
	"2006-01-02",
	"20060102",
}

// ParseTimestamp parses the ISO-8601 forms accepted in transaction records.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errUnparseableTimestamp
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errUnparseableTimestamp
}
