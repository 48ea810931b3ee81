// Package canonical produces the byte-exact JSON encoding and keccak256
// digests that attestation commitments are computed over.
//
// The encoding is the one an ECMAScript JSON.stringify would produce for the
// same logical value: object keys in struct declaration order, numbers in
// shortest round-trip form, no HTML escaping and no trailing newline. Any
// independent verifier can therefore recompute a commitment from the
// attestation document alone.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 UTC layout with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Marshal encodes v into its canonical JSON form.
func Marshal(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Time is a wall-clock instant that always serializes as a UTC millisecond
// ISO-8601 string.
type Time struct {
	time.Time
}

// NewTime truncates t to milliseconds and converts it to UTC so that the
// value survives a serialize/parse round trip unchanged.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC().Truncate(time.Millisecond)}
}

// String returns the canonical textual form.
func (t Time) String() string {
	return t.UTC().Format(TimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("canonical time: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("canonical time %q: %w", s, err)
	}
	*t = NewTime(parsed)
	return nil
}

// Equal reports whether both times denote the same instant.
func (t Time) Equal(other Time) bool {
	return t.Time.Equal(other.Time)
}
