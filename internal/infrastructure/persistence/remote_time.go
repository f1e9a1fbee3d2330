package persistence

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// RemoteTime is a time.Time that tolerates the timestamp shapes the remote
// store emits: RFC3339 with offset or Z, and offset-less timestamps which
// are taken as UTC.
type RemoteTime struct {
	time.Time
}

var remoteTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements tolerant timestamp decoding
func (t *RemoteTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range remoteTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable remote timestamp %q", s)
}

// MarshalJSON emits RFC3339 UTC
func (t RemoteTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Time.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// Value implements driver.Valuer for gorm
func (t RemoteTime) Value() (driver.Value, error) {
	if t.Time.IsZero() {
		return nil, nil
	}
	return t.Time.UTC(), nil
}

// Scan implements sql.Scanner for gorm
func (t *RemoteTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.UnmarshalJSON([]byte(`"` + v + `"`))
	case []byte:
		return t.UnmarshalJSON([]byte(`"` + string(v) + `"`))
	default:
		return fmt.Errorf("cannot scan %T into RemoteTime", src)
	}
}
