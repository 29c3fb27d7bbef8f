package domain

import (
	"fmt"
	"strings"
	"time"
)

// Clause is a filter clause on one dimension. The set of implementations is
// closed: BooleanClause, StringClause, NumberClause and TimeClause.
type Clause interface {
	Reference() string
	// Contains reports whether a segment value is selected by the clause
	Contains(v Value) bool
	String() string
	isClause()
}

// BooleanClause selects rows whose boolean dimension is one of Values
type BooleanClause struct {
	Ref    string
	Values []bool
	Not    bool
}

// StringClause selects rows whose categorical dimension is one of Values
type StringClause struct {
	Ref    string
	Values []string
	Not    bool
}

// NumberClause selects rows whose numeric dimension falls in any of Ranges
type NumberClause struct {
	Ref    string
	Ranges []NumberRange
	Not    bool
}

// TimeClause selects rows whose time dimension falls in any of Ranges
type TimeClause struct {
	Ref    string
	Ranges []TimeRange
	Not    bool
}

func (c BooleanClause) Reference() string { return c.Ref }
func (c StringClause) Reference() string  { return c.Ref }
func (c NumberClause) Reference() string  { return c.Ref }
func (c TimeClause) Reference() string    { return c.Ref }

func (BooleanClause) isClause() {}
func (StringClause) isClause()  {}
func (NumberClause) isClause()  {}
func (TimeClause) isClause()    {}

func (c BooleanClause) Contains(v Value) bool {
	b, ok := v.(Bool)
	if !ok {
		return false
	}
	for _, x := range c.Values {
		if x == bool(b) {
			return !c.Not
		}
	}
	return c.Not
}

func (c StringClause) Contains(v Value) bool {
	s, ok := v.(String)
	if !ok {
		return false
	}
	for _, x := range c.Values {
		if x == string(s) {
			return !c.Not
		}
	}
	return c.Not
}

func (c NumberClause) Contains(v Value) bool {
	var probe float64
	switch v := v.(type) {
	case Number:
		probe = float64(v)
	case NumberRange:
		probe = v.Midpoint()
	default:
		return false
	}
	for _, r := range c.Ranges {
		if r.Contains(probe) {
			return !c.Not
		}
	}
	return c.Not
}

func (c TimeClause) Contains(v Value) bool {
	var probe time.Time
	switch v := v.(type) {
	case Time:
		probe = v.Time
	case TimeRange:
		probe = v.Midpoint()
	default:
		return false
	}
	for _, r := range c.Ranges {
		if r.Contains(probe) {
			return !c.Not
		}
	}
	return c.Not
}

func (c BooleanClause) String() string {
	parts := make([]string, len(c.Values))
	for i, v := range c.Values {
		parts[i] = fmt.Sprint(v)
	}
	return clauseString(c.Ref, c.Not, parts)
}

func (c StringClause) String() string {
	return clauseString(c.Ref, c.Not, c.Values)
}

func (c NumberClause) String() string {
	parts := make([]string, len(c.Ranges))
	for i, r := range c.Ranges {
		parts[i] = r.String()
	}
	return clauseString(c.Ref, c.Not, parts)
}

func (c TimeClause) String() string {
	parts := make([]string, len(c.Ranges))
	for i, r := range c.Ranges {
		parts[i] = r.String()
	}
	return clauseString(c.Ref, c.Not, parts)
}

func clauseString(ref string, not bool, parts []string) string {
	op := "in"
	if not {
		op = "not in"
	}
	return fmt.Sprintf("%s %s {%s}", ref, op, strings.Join(parts, ", "))
}

// ClauseFor builds the clause selecting a single segment value on the given
// dimension. Point numbers and instants cannot select a segment; passing one
// is a caller bug and panics.
func ClauseFor(ref string, v Value) Clause {
	switch v := v.(type) {
	case Bool:
		return BooleanClause{Ref: ref, Values: []bool{bool(v)}}
	case String:
		return StringClause{Ref: ref, Values: []string{string(v)}}
	case NumberRange:
		return NumberClause{Ref: ref, Ranges: []NumberRange{v}}
	case TimeRange:
		return TimeClause{Ref: ref, Ranges: []TimeRange{v}}
	}
	panic(fmt.Sprintf("domain: cannot build a filter clause on %q from %T value %v", ref, v, v))
}

// Highlight is a committed selection: filter clauses plus the series or
// measure key that owns it.
type Highlight struct {
	Clauses []Clause
	Key     string
}

// Clause returns the highlight clause on the given dimension
func (h *Highlight) Clause(ref string) (Clause, bool) {
	if h == nil {
		return nil, false
	}
	for _, c := range h.Clauses {
		if c.Reference() == ref {
			return c, true
		}
	}
	return nil, false
}

// Covers reports whether the highlight selects segment v on dimension ref
func (h *Highlight) Covers(ref string, v Value) bool {
	c, ok := h.Clause(ref)
	return ok && c.Contains(v)
}

// Filter is the ordered set of clauses applied to every query
type Filter struct {
	Clauses []Clause
}

// Merge returns a new filter where each incoming clause replaces any
// existing clause on the same dimension.
func (f Filter) Merge(clauses ...Clause) Filter {
	out := make([]Clause, 0, len(f.Clauses)+len(clauses))
	replaced := make(map[string]bool, len(clauses))
	for _, c := range clauses {
		replaced[c.Reference()] = true
	}
	for _, c := range f.Clauses {
		if !replaced[c.Reference()] {
			out = append(out, c)
		}
	}
	out = append(out, clauses...)
	return Filter{Clauses: out}
}

// Clause returns the filter clause on the given dimension
func (f Filter) Clause(ref string) (Clause, bool) {
	for _, c := range f.Clauses {
		if c.Reference() == ref {
			return c, true
		}
	}
	return nil, false
}
