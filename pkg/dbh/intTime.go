package dbh

import (
	"database/sql/driver"
	"time"
)

// IntTime is time in milliseconds UTC (aka unix milliseconds).
// IntTime makes it easy to save Int64 milliseconds into an SQLite database with gorm,
// and it marshals into JSON as a plain number, so "new Date(x)" works in Javascript.
// One important downside is that the zero value means nil, so we are unable to
// represent the date 1970-01-01 00:00:00.000.
type IntTime int64

// Return a new IntTime from a time.Time
func MakeIntTime(v time.Time) IntTime {
	if v.IsZero() {
		return 0
	}
	return IntTime(v.UnixMilli())
}

func (t IntTime) IsZero() bool {
	return t == 0
}

// Set IntTime to time.Time
func (t *IntTime) Set(v time.Time) {
	if v.IsZero() {
		*t = 0
	} else {
		*t = IntTime(v.UnixMilli())
	}
}

// Get time.Time
func (t IntTime) Get() time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(t)).UTC()
}

func (t *IntTime) Scan(src any) error {
	if src == nil {
		*t = 0
		return nil
	}
	if srcInt, ok := src.(int32); ok {
		*t = IntTime(srcInt)
	} else if srcInt64, ok := src.(int64); ok {
		*t = IntTime(srcInt64)
	}
	return nil
}

func (t IntTime) Value() (driver.Value, error) {
	if t == 0 {
		return nil, nil
	}
	return int64(t), nil
}
