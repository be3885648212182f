package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is fixed width so that lexical order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp is a UTC instant stored as a sortable ISO-8601 string
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// Stamp returns a pointer, for the optional *At fields.
func Stamp(t time.Time) *Timestamp {
	ts := NewTimestamp(t)
	return &ts
}

func (t Timestamp) String() string {
	return t.Time.UTC().Format(TimestampLayout)
}

func ParseTimestamp(s string) (Timestamp, error) {
	if parsed, err := time.Parse(TimestampLayout, s); err == nil {
		return NewTimestamp(parsed), nil
	}
	// older documents were written with variable-width RFC 3339
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return NewTimestamp(parsed), nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("failed to unmarshal Timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
