// Package domain holds the data model shared by the scales, the interaction
// engine and the visualizations: domain values, datums, datasets and the
// filter clauses a highlight is made of.
package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the concrete type of a Value
type Kind uint8

const (
	KindBool Kind = iota
	KindNumber
	KindString
	KindTime
	KindNumberRange
	KindTimeRange
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindNumberRange:
		return "number-range"
	case KindTimeRange:
		return "time-range"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a data-space value that can be plotted on an axis or used as a
// grouping key. The set of implementations is closed.
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

// Bool is a boolean domain value
type Bool bool

// Number is a numeric domain value
type Number float64

// String is a categorical domain value
type String string

// Time is an instant on a time axis
type Time struct {
	time.Time
}

// NewTime wraps t as a domain value
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

func (Bool) Kind() Kind   { return KindBool }
func (Number) Kind() Kind { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Time) Kind() Kind   { return KindTime }

func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Time) isValue()   {}

func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func (s String) String() string {
	return string(s)
}

func (t Time) String() string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NumberRange is a half-open numeric segment [Start, End)
type NumberRange struct {
	Start float64
	End   float64
}

func (NumberRange) Kind() Kind { return KindNumberRange }
func (NumberRange) isValue()   {}

func (r NumberRange) String() string {
	return fmt.Sprintf("[%s, %s)", Number(r.Start), Number(r.End))
}

// Equals reports whether both bounds match
func (r NumberRange) Equals(o NumberRange) bool {
	return r.Start == o.Start && r.End == o.End
}

// Contains reports whether v falls in [Start, End)
func (r NumberRange) Contains(v float64) bool {
	return v >= r.Start && v < r.End
}

// Midpoint returns the center of the range
func (r NumberRange) Midpoint() float64 {
	return r.Start + (r.End-r.Start)/2
}

// TimeRange is a half-open time segment [Start, End)
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (TimeRange) Kind() Kind { return KindTimeRange }
func (TimeRange) isValue()   {}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.UTC().Format(time.RFC3339Nano), r.End.UTC().Format(time.RFC3339Nano))
}

// Equals reports whether both bounds are the same instants
func (r TimeRange) Equals(o TimeRange) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}

// Contains reports whether t falls in [Start, End)
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Midpoint returns the instant halfway between Start and End
func (r TimeRange) Midpoint() time.Time {
	return r.Start.Add(r.End.Sub(r.Start) / 2)
}

// Key returns the canonical string key of v. Time ranges are keyed by their
// start instant and number ranges by their decimal start, so that band scales
// can look segments up independently of pointer identity.
func Key(v Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case TimeRange:
		return v.Start.UTC().Format(time.RFC3339Nano)
	case NumberRange:
		return Number(v.Start).String()
	default:
		return v.String()
	}
}

// ValuesEqual compares two domain values using the range types' own Equals
// and plain equality for primitives. Two nil values are equal.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case NumberRange:
		return av.Equals(b.(NumberRange))
	case TimeRange:
		return av.Equals(b.(TimeRange))
	case Time:
		return av.Equal(b.(Time).Time)
	default:
		return a == b
	}
}

// Midpoint returns the point value at the middle of a range value, or v
// itself for point values.
func Midpoint(v Value) Value {
	switch v := v.(type) {
	case NumberRange:
		return Number(v.Midpoint())
	case TimeRange:
		return NewTime(v.Midpoint())
	}
	return v
}

// Start returns the lower bound of a range value, or v itself for point values.
func Start(v Value) Value {
	switch v := v.(type) {
	case NumberRange:
		return Number(v.Start)
	case TimeRange:
		return NewTime(v.Start)
	}
	return v
}

// End returns the upper bound of a range value, or v itself for point values.
func End(v Value) Value {
	switch v := v.(type) {
	case NumberRange:
		return Number(v.End)
	case TimeRange:
		return NewTime(v.End)
	}
	return v
}
