// Package query describes split/measure queries over a table and runs them,
// producing nested datasets.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/recera/pivot/pkg/domain"
)

// SplitKind is the type of a split dimension
type SplitKind uint8

const (
	SplitString SplitKind = iota
	SplitBoolean
	SplitNumber
	SplitTime
)

func (k SplitKind) String() string {
	switch k {
	case SplitBoolean:
		return "boolean"
	case SplitNumber:
		return "number"
	case SplitTime:
		return "time"
	}
	return "string"
}

// ParseSplitKind parses the names returned by SplitKind.String
func ParseSplitKind(s string) (SplitKind, error) {
	switch strings.ToLower(s) {
	case "", "string":
		return SplitString, nil
	case "boolean", "bool":
		return SplitBoolean, nil
	case "number":
		return SplitNumber, nil
	case "time":
		return SplitTime, nil
	}
	return 0, fmt.Errorf("query: unknown split kind %q", s)
}

// Split groups rows by one dimension
type Split struct {
	Dimension string
	Kind      SplitKind
	// Grain buckets time splits; zero means one day
	Grain domain.Grain
	// BucketSize buckets number splits; zero means 1
	BucketSize float64
	// Limit keeps the first n segments after sorting; zero keeps all
	Limit int
}

// Aggregate is how a measure folds rows
type Aggregate uint8

const (
	Count Aggregate = iota
	Sum
	Avg
	Min
	Max
)

func (a Aggregate) String() string {
	switch a {
	case Sum:
		return "sum"
	case Avg:
		return "avg"
	case Min:
		return "min"
	case Max:
		return "max"
	}
	return "count"
}

// Measure is an aggregate over a column, exposed under Name
type Measure struct {
	Name      string
	Aggregate Aggregate
	Column    string
}

func (m Measure) String() string {
	if m.Aggregate == Count {
		return m.Name + "=count"
	}
	return fmt.Sprintf("%s=%s(%s)", m.Name, m.Aggregate, m.Column)
}

var measurePattern = regexp.MustCompile(`^(?:(\w+)=)?(count|sum|avg|min|max)(?:\((\w+)\))?$`)

// ParseMeasure parses "count", "sum(added)" or "total=sum(added)". Without
// an explicit name the measure is called after its aggregate and column.
func ParseMeasure(s string) (Measure, error) {
	m := measurePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Measure{}, fmt.Errorf("query: invalid measure %q", s)
	}
	var agg Aggregate
	switch m[2] {
	case "sum":
		agg = Sum
	case "avg":
		agg = Avg
	case "min":
		agg = Min
	case "max":
		agg = Max
	}
	if agg != Count && m[3] == "" {
		return Measure{}, fmt.Errorf("query: measure %q needs a column", s)
	}
	name := m[1]
	if name == "" {
		name = m[2]
		if m[3] != "" {
			name += "_" + m[3]
		}
	}
	return Measure{Name: name, Aggregate: agg, Column: m[3]}, nil
}

// Query is a split/measure query over one table
type Query struct {
	Table    string
	Splits   []Split
	Measures []Measure
	Filter   domain.Filter
	// Location is the timezone time splits bucket in
	Location *time.Location
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks identifiers and measures
func (q Query) Validate() error {
	if !identPattern.MatchString(q.Table) {
		return fmt.Errorf("query: invalid table name %q", q.Table)
	}
	if len(q.Measures) == 0 {
		return errors.New("query: at least one measure is required")
	}
	for _, s := range q.Splits {
		if !identPattern.MatchString(s.Dimension) {
			return fmt.Errorf("query: invalid dimension %q", s.Dimension)
		}
	}
	seen := make(map[string]bool, len(q.Measures))
	for _, m := range q.Measures {
		if m.Name == "" || m.Name == domain.SplitKey {
			return fmt.Errorf("query: invalid measure name %q", m.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("query: duplicate measure %q", m.Name)
		}
		seen[m.Name] = true
		if m.Aggregate != Count && !identPattern.MatchString(m.Column) {
			return fmt.Errorf("query: invalid column %q for measure %s", m.Column, m.Name)
		}
	}
	for _, c := range q.Filter.Clauses {
		if !identPattern.MatchString(c.Reference()) {
			return fmt.Errorf("query: invalid filter dimension %q", c.Reference())
		}
	}
	return nil
}

// Executor runs queries
type Executor interface {
	Execute(ctx context.Context, q Query) (*domain.Dataset, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, q Query) (*domain.Dataset, error)

func (f ExecutorFunc) Execute(ctx context.Context, q Query) (*domain.Dataset, error) {
	return f(ctx, q)
}

// QueryError is a failed query as shown to the user
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return "query error: " + e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// AsQueryError wraps err into a QueryError unless it already is one
func AsQueryError(err error) *QueryError {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	return &QueryError{Message: err.Error(), Err: err}
}
