// Package db provides the storage-level building blocks that the data access
// layer is made from: column types that convert between Go and database
// representations, the closed set of tables and their columns, a query
// builder that only ever binds values as parameters, and the connection pool.
//
// Engine-specific pieces live in the sqlite and postgres sub-packages.
package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dekarrin/potluck"
)

// DateLayout is the layout that dates are stored and transmitted in.
const DateLayout = "2006-01-02"

// NowTimestamp returns the current time as a Timestamp.
func NowTimestamp() Timestamp {
	return Timestamp(time.Now())
}

// Timestamp is a time.Time variation that stores itself in the DB as the number
// of seconds since the Unix epoch. In JSON it is an RFC-3339 string.
type Timestamp time.Time

func (ts Timestamp) Format(layout string) string {
	return ts.Time().Format(layout)
}

func (ts Timestamp) Value() (driver.Value, error) {
	return time.Time(ts).Unix(), nil
}

func (ts *Timestamp) Scan(value interface{}) error {
	var iVal int64

	switch v := value.(type) {
	case int:
		iVal = int64(v)
	case int8:
		iVal = int64(v)
	case int16:
		iVal = int64(v)
	case int32:
		iVal = int64(v)
	case int64:
		iVal = v
	case time.Time:
		*ts = Timestamp(v)
		return nil
	default:
		return potluck.NewError(fmt.Sprintf("not an integer value: %v", value), potluck.DBErrDecodingFailure)
	}

	tVal := time.Unix(iVal, 0)
	*ts = Timestamp(tVal)
	return nil
}

func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Time().UTC().Format(time.RFC3339))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*ts = Timestamp(t)
	return nil
}

// Bool is a bool that stores itself in the DB as the INTEGER 0 or 1.
type Bool bool

func (b Bool) Value() (driver.Value, error) {
	if b {
		return int64(1), nil
	}
	return int64(0), nil
}

func (b *Bool) Scan(value interface{}) error {
	switch v := value.(type) {
	case int64:
		*b = v != 0
	case int32:
		*b = v != 0
	case int:
		*b = v != 0
	case bool:
		*b = Bool(v)
	case []byte:
		*b = Bool(ParseBool(string(v)))
	case string:
		*b = Bool(ParseBool(v))
	case nil:
		*b = false
	default:
		return potluck.NewError(fmt.Sprintf("not a boolean value: %v", value), potluck.DBErrDecodingFailure)
	}
	return nil
}

// ParseBool converts text from a query string or a stored value to a bool.
// The strings "true", "1", "t", "yes", "y", and "on" are true regardless of
// case; everything else, including the empty string, is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// Date is a calendar date with no time component. It is stored as TEXT in
// YYYY-MM-DD form, which sorts the same way the dates do.
type Date time.Time

// ParseDate parses a YYYY-MM-DD string. The returned error matches
// potluck.ErrNotDate if s is not a valid date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, potluck.NewError(fmt.Sprintf("%q", s), potluck.ErrNotDate)
	}
	return Date(t), nil
}

func (d Date) String() string {
	return time.Time(d).Format(DateLayout)
}

func (d Date) Time() time.Time {
	return time.Time(d)
}

// IsZero returns whether d is the zero Date.
func (d Date) IsZero() bool {
	return time.Time(d).IsZero()
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		y, m, day := v.Date()
		*d = Date(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
		return nil
	default:
		return potluck.NewError(fmt.Sprintf("not a date value: %v", value), potluck.DBErrDecodingFailure)
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return potluck.NewError("", err, potluck.DBErrDecodingFailure)
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return potluck.NewError("", err, potluck.ErrNotDate)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Fields is a set of column values to write to a row.
type Fields map[string]interface{}

// Columns returns the names of the columns in f in sorted order, so that
// statements built from the same Fields are always identical.
func (f Fields) Columns() []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Without returns a copy of f with the named columns removed.
func (f Fields) Without(cols ...string) Fields {
	newF := make(Fields, len(f))
	for k, v := range f {
		newF[k] = v
	}
	for _, c := range cols {
		delete(newF, c)
	}
	return newF
}

