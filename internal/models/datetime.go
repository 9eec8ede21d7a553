package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// LocalDateTime is a wall-clock instant serialized without a zone.
type LocalDateTime struct {
	time.Time
}

// NewLocalDateTime builds a value from the calendar day of t at hour:00.
func NewLocalDateTime(t time.Time, hour int) LocalDateTime {
	return LocalDateTime{Time: time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.Local)}
}

func (d LocalDateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(LocalDateTimeLayout))
}

func (d *LocalDateTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("local date-time: %w", err)
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{LocalDateTimeLayout, "2006-01-02T15:04:05.999999999", time.RFC3339Nano, DateLayout} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("local date-time: unsupported format %q", raw)
}

// DateKey returns the YYYY-MM-DD key of t in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
