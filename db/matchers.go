package db

import (
	"database/sql/driver"
	"time"
)

// This file contains matchers to be used with DATA-DOG/go-sqlmock.

// AnyTime is a DATA-DOG/go-sqlmock compatible matcher used for matching against
// any time.Time that is encoded as an RFC-3339 string, a unix epoch timestamp,
// directly as a time.Time, or as a db.Timestamp.
//
// If Except is set, then it will match any time besides the given one. If
// EqualTo is set, it will only match that time. If After is set, it will match
// any time at or after the given one. If Before is set, it will match any time
// at or before the given one. These may be combined; if multiple are
// given, their conditions are AND'd together.
type AnyTime struct {
	Except  *time.Time
	EqualTo *time.Time
	After   *time.Time
	Before  *time.Time
}

func (m AnyTime) Match(v driver.Value) bool {
	var t time.Time
	var err error

	switch typedV := v.(type) {
	case string:
		t, err = time.Parse(time.RFC3339, typedV)
		if err != nil {
			return false
		}
	case int:
		t = time.Unix(int64(typedV), 0)
	case int64:
		t = time.Unix(typedV, 0)
	case int32:
		t = time.Unix(int64(typedV), 0)
	case int16:
		t = time.Unix(int64(typedV), 0)
	case int8:
		t = time.Unix(int64(typedV), 0)
	case Timestamp:
		t = typedV.Time()
	case time.Time:
		t = typedV
	default:
		return false
	}

	if m.Except != nil {
		if t.Equal(*m.Except) {
			return false
		}
	}
	if m.EqualTo != nil {
		if !t.Equal(*m.EqualTo) {
			return false
		}
	}
	if m.After != nil {
		if t.Before(*m.After) {
			return false
		}
	}
	if m.Before != nil {
		if t.After(*m.Before) {
			return false
		}
	}

	return true
}

// AnyInt is a DATA-DOG/go-sqlmock compatible matcher that matches any integer
// value. If Min is set, the value must be at least Min.
type AnyInt struct {
	Min *int64
}

func (m AnyInt) Match(v driver.Value) bool {
	var i int64

	switch typedV := v.(type) {
	case int:
		i = int64(typedV)
	case int64:
		i = typedV
	case int32:
		i = int64(typedV)
	default:
		return false
	}

	if m.Min != nil && i < *m.Min {
		return false
	}
	return true
}
