package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Unit is a calendar unit for time bucketing
type Unit uint8

const (
	Second Unit = iota
	Minute
	Hour
	Day
	Week
	Month
	Year
)

// Grain is a calendar-aware bucketing duration such as P1D or PT5M. Floor and
// Shift work on wall-clock time in the supplied location, so a daily grain
// lines up with local midnights.
type Grain struct {
	Unit Unit
	N    int
}

var grainPattern = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseGrain parses a single-unit ISO-8601 duration (P1D, PT1H, P1W, ...)
func ParseGrain(s string) (Grain, error) {
	m := grainPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return Grain{}, fmt.Errorf("invalid duration %q", s)
	}
	units := []Unit{Year, Month, Week, Day, Hour, Minute, Second}
	var g Grain
	found := 0
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n <= 0 {
			return Grain{}, fmt.Errorf("invalid duration %q", s)
		}
		g = Grain{Unit: u, N: n}
		found++
	}
	if found != 1 {
		return Grain{}, fmt.Errorf("duration %q must use exactly one unit", s)
	}
	return g, nil
}

// MustParseGrain is ParseGrain that panics on error
func MustParseGrain(s string) Grain {
	g, err := ParseGrain(s)
	if err != nil {
		panic(err)
	}
	return g
}

func (g Grain) String() string {
	n := g.N
	switch g.Unit {
	case Second:
		return fmt.Sprintf("PT%dS", n)
	case Minute:
		return fmt.Sprintf("PT%dM", n)
	case Hour:
		return fmt.Sprintf("PT%dH", n)
	case Day:
		return fmt.Sprintf("P%dD", n)
	case Week:
		return fmt.Sprintf("P%dW", n)
	case Month:
		return fmt.Sprintf("P%dM", n)
	}
	return fmt.Sprintf("P%dY", n)
}

// IsZero reports whether the grain was never set
func (g Grain) IsZero() bool {
	return g.N == 0
}

// Floor rounds t down to the start of its bucket in loc
func (g Grain) Floor(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := g.N
	if n <= 0 {
		n = 1
	}
	lt := t.In(loc)
	y, mo, d := lt.Date()
	switch g.Unit {
	case Second:
		s := lt.Second() - lt.Second()%n
		return time.Date(y, mo, d, lt.Hour(), lt.Minute(), s, 0, loc)
	case Minute:
		m := lt.Minute() - lt.Minute()%n
		return time.Date(y, mo, d, lt.Hour(), m, 0, 0, loc)
	case Hour:
		h := lt.Hour() - lt.Hour()%n
		return time.Date(y, mo, d, h, 0, 0, 0, loc)
	case Day:
		// Multi-day buckets are aligned on 1970-01-01
		r := mod(civilDay(y, mo, d), n)
		return time.Date(y, mo, d-r, 0, 0, 0, 0, loc)
	case Week:
		// ISO weeks start on Monday; multi-week buckets are aligned on
		// Monday 1970-01-05
		offset := (int(lt.Weekday()) + 6) % 7
		weeks := (civilDay(y, mo, d-offset) - 4) / 7
		r := mod(weeks, n)
		return time.Date(y, mo, d-offset-7*r, 0, 0, 0, 0, loc)
	case Month:
		m := int(mo) - 1
		m -= m % n
		return time.Date(y, time.Month(m+1), 1, 0, 0, 0, 0, loc)
	}
	return time.Date(y-y%n, time.January, 1, 0, 0, 0, 0, loc)
}

// civilDay counts calendar days since 1970-01-01, ignoring any zone
func civilDay(y int, mo time.Month, d int) int {
	u := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).Unix()
	if u < 0 {
		return int((u - 86399) / 86400)
	}
	return int(u / 86400)
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// Shift moves t by k grains in loc
func (g Grain) Shift(t time.Time, loc *time.Location, k int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := g.N * k
	lt := t.In(loc)
	switch g.Unit {
	case Second:
		return lt.Add(time.Duration(n) * time.Second)
	case Minute:
		return lt.Add(time.Duration(n) * time.Minute)
	case Hour:
		return lt.Add(time.Duration(n) * time.Hour)
	case Day:
		return lt.AddDate(0, 0, n)
	case Week:
		return lt.AddDate(0, 0, 7*n)
	case Month:
		return lt.AddDate(0, n, 0)
	}
	return lt.AddDate(n, 0, 0)
}

// Ceil rounds t up to the next bucket boundary; boundaries map to themselves
func (g Grain) Ceil(t time.Time, loc *time.Location) time.Time {
	f := g.Floor(t, loc)
	if f.Equal(t) {
		return f
	}
	return g.Shift(f, loc, 1)
}

// Bucket returns the segment of t
func (g Grain) Bucket(t time.Time, loc *time.Location) TimeRange {
	start := g.Floor(t, loc)
	return TimeRange{Start: start, End: g.Shift(start, loc, 1)}
}

// NumberBucket returns the [k*size, (k+1)*size) segment containing v
func NumberBucket(v, size float64) NumberRange {
	if size <= 0 {
		return NumberRange{Start: v, End: v}
	}
	start := math.Floor(v/size) * size
	return NumberRange{Start: start, End: start + size}
}
