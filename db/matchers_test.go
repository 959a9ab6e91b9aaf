package db

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_AnyTime_Matches(t *testing.T) {
	testCases := []struct {
		name   string
		m      AnyTime
		input  driver.Value
		expect bool
	}{
		// with no other members set
		{
			name:   "any - string - RFC-3339 with Z offset",
			input:  "2021-01-01T02:07:14Z",
			expect: true,
		},
		{
			name:   "any - string - RFC-3339 with explicit offset",
			input:  "2020-12-31T21:07:14-05:00",
			expect: true,
		},
		{
			name:   "any - string - invalid RFC-3339 (no time)",
			input:  "2020-12-31",
			expect: false,
		},
		{
			name:   "any - int - positive",
			input:  1710246273,
			expect: true,
		},
		{
			name:   "any - zero",
			input:  0,
			expect: true,
		},
		{
			name:   "any - db.Timestamp - non-zero",
			input:  NowTimestamp(),
			expect: true,
		},
		{
			name:   "any - time.Time - non-zero",
			input:  time.Now(),
			expect: true,
		},
		{
			name:   "any - float is not a time",
			input:  1.5,
			expect: false,
		},

		// any except
		{
			name:   "any except with UTC zone - string = excluded",
			input:  "2021-01-01T02:07:14Z",
			m:      AnyTime{Except: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: false,
		},
		{
			name:   "any except with local zone - string = excluded",
			input:  "2021-01-01T02:07:14Z",
			m:      AnyTime{Except: ref(time.Date(2021, 1, 1, 1, 7, 14, 0, time.FixedZone("hourbehind", -3600)))},
			expect: false,
		},
		{
			name:   "any except - int = included",
			input:  1609466835,
			m:      AnyTime{Except: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: true,
		},

		// any equal to
		{
			name:   "any equal - int = included",
			input:  int64(1609466834),
			m:      AnyTime{EqualTo: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: true,
		},
		{
			name:   "any equal - db.Timestamp = excluded",
			input:  Timestamp(time.Date(2021, 1, 1, 2, 7, 14, 1, time.UTC)),
			m:      AnyTime{EqualTo: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: false,
		},

		// after and before are inclusive
		{
			name:   "after - same second = included",
			input:  int64(1609466834),
			m:      AnyTime{After: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: true,
		},
		{
			name:   "after - earlier = excluded",
			input:  int64(1609466833),
			m:      AnyTime{After: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: false,
		},
		{
			name:   "before - later = excluded",
			input:  int64(1609466835),
			m:      AnyTime{Before: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: false,
		},
		{
			name:   "before - earlier = included",
			input:  int64(1609466833),
			m:      AnyTime{Before: ref(time.Date(2021, 1, 1, 2, 7, 14, 0, time.UTC))},
			expect: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.m.Match(tc.input)

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_AnyInt_Matches(t *testing.T) {
	testCases := []struct {
		name   string
		m      AnyInt
		input  driver.Value
		expect bool
	}{
		{name: "int64", input: int64(4), expect: true},
		{name: "int", input: 4, expect: true},
		{name: "string", input: "4", expect: false},
		{name: "at min", m: AnyInt{Min: ref(int64(4))}, input: int64(4), expect: true},
		{name: "below min", m: AnyInt{Min: ref(int64(4))}, input: int64(3), expect: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.m.Match(tc.input)

			assert.Equal(tc.expect, actual)
		})
	}
}

func ref[E any](v E) *E {
	return &v
}
