package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var null = []byte("null")

// Optional tracks whether a JSON field was present at all. A present null
// leaves Value nil with Set true.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), null) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

var deadlineLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
}

// ParseDeadline parses an ISO-8601 date or datetime. Date-only values are
// the start of that day in UTC. Blank input yields nil.
func ParseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			if layout == "2006-01-02" {
				parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			}
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid deadline date format %q: use YYYY-MM-DD or an ISO-8601 datetime", s)
}

// Deadline is a deadline field: absent, null/"" (clear), or an ISO-8601 string.
type Deadline struct {
	Set bool
	t   *time.Time
}

func (d *Deadline) UnmarshalJSON(data []byte) error {
	d.Set = true
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("deadline must be an ISO-8601 string or null")
	}
	if raw == nil {
		d.t = nil
		return nil
	}
	t, err := ParseDeadline(*raw)
	if err != nil {
		return err
	}
	d.t = t
	return nil
}

// Ptr returns *time.Time for use in service/repo.
func (d Deadline) Ptr() *time.Time { return d.t }
