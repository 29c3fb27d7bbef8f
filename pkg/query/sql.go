package query

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/recera/pivot/pkg/domain"
)

// SQLExecutor runs queries against a SQLite table. Filters on boolean,
// string and number dimensions are pushed into the SQL; time filters,
// bucketing and aggregation happen in Go so buckets follow the query's
// timezone.
type SQLExecutor struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path
func Open(path string) (*SQLExecutor, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &SQLExecutor{db: db}, nil
}

// OpenMemory opens a private in-memory database
func OpenMemory() (*SQLExecutor, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	return &SQLExecutor{db: db}, nil
}

// NewSQLExecutor wraps an open database
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// DB returns the underlying database
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

// Close closes the database
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

type record struct {
	dims []domain.Value
	vals []float64
}

// Execute runs q. Rows are grouped by the first split, each group carrying
// the next split's groups under domain.SplitKey. A query without splits
// returns a single datum of totals.
func (e *SQLExecutor) Execute(ctx context.Context, q Query) (*domain.Dataset, error) {
	if err := q.Validate(); err != nil {
		return nil, &QueryError{Message: err.Error(), Err: err}
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	cols, stmt, args := buildSelect(q)
	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &QueryError{Message: err.Error(), Err: err}
	}
	defer rows.Close()

	colIndex := make(map[string]int, len(cols))
	for i, c := range cols {
		colIndex[c] = i
	}
	timeClauses := timeFilters(q.Filter)

	var recs []record
	// A bare count still selects one constant column
	raw := make([]any, max(len(cols), 1))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Message: err.Error(), Err: err}
		}
		if !matchTime(timeClauses, raw, colIndex) {
			continue
		}
		rec := record{dims: make([]domain.Value, len(q.Splits)), vals: make([]float64, len(q.Measures))}
		for i, s := range q.Splits {
			rec.dims[i] = segment(s, raw[colIndex[s.Dimension]], loc)
		}
		for i, m := range q.Measures {
			if m.Aggregate == Count {
				rec.vals[i] = 1
				continue
			}
			rec.vals[i] = toFloat(raw[colIndex[m.Column]])
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Message: err.Error(), Err: err}
	}

	if len(q.Splits) == 0 {
		return domain.NewDataset(domain.NewDatum(measureFields(q.Measures, recs)...)), nil
	}
	return group(q, recs, 0), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// buildSelect returns the projected columns and the statement selecting them
func buildSelect(q Query) (cols []string, stmt string, args []any) {
	seen := make(map[string]bool)
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, s := range q.Splits {
		add(s.Dimension)
	}
	for _, m := range q.Measures {
		if m.Aggregate != Count {
			add(m.Column)
		}
	}
	for _, c := range q.Filter.Clauses {
		if _, ok := c.(domain.TimeClause); ok {
			add(c.Reference())
		}
	}

	proj := make([]string, len(cols))
	for i, c := range cols {
		proj[i] = quoteIdent(c)
	}
	if len(proj) == 0 {
		proj = []string{"1"}
	}

	var where []string
	for _, c := range q.Filter.Clauses {
		cond, cargs := clauseSQL(c)
		if cond != "" {
			where = append(where, cond)
			args = append(args, cargs...)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(proj, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(q.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	return cols, b.String(), args
}

func clauseSQL(c domain.Clause) (string, []any) {
	col := quoteIdent(c.Reference())
	var cond string
	var args []any
	not := false
	switch c := c.(type) {
	case domain.BooleanClause:
		not = c.Not
		if len(c.Values) == 0 {
			cond = "0"
			break
		}
		ph := make([]string, len(c.Values))
		for i, v := range c.Values {
			ph[i] = "?"
			if v {
				args = append(args, 1)
			} else {
				args = append(args, 0)
			}
		}
		cond = col + " IN (" + strings.Join(ph, ", ") + ")"
	case domain.StringClause:
		not = c.Not
		if len(c.Values) == 0 {
			cond = "0"
			break
		}
		ph := make([]string, len(c.Values))
		for i, v := range c.Values {
			ph[i] = "?"
			args = append(args, v)
		}
		cond = col + " IN (" + strings.Join(ph, ", ") + ")"
	case domain.NumberClause:
		not = c.Not
		if len(c.Ranges) == 0 {
			cond = "0"
			break
		}
		parts := make([]string, len(c.Ranges))
		for i, r := range c.Ranges {
			parts[i] = "(" + col + " >= ? AND " + col + " < ?)"
			args = append(args, r.Start, r.End)
		}
		cond = "(" + strings.Join(parts, " OR ") + ")"
	case domain.TimeClause:
		return "", nil
	default:
		panic(fmt.Sprintf("query: unexpected filter clause %T (%v)", c, c))
	}
	if not {
		cond = "NOT " + cond
	}
	return cond, args
}

func timeFilters(f domain.Filter) []domain.TimeClause {
	var out []domain.TimeClause
	for _, c := range f.Clauses {
		if tc, ok := c.(domain.TimeClause); ok {
			out = append(out, tc)
		}
	}
	return out
}

func matchTime(clauses []domain.TimeClause, raw []any, colIndex map[string]int) bool {
	for _, c := range clauses {
		t, ok := toTime(raw[colIndex[c.Ref]])
		if !ok || !c.Contains(domain.NewTime(t)) {
			return false
		}
	}
	return true
}

// segment converts a raw column value into the segment it falls in
func segment(s Split, v any, loc *time.Location) domain.Value {
	if v == nil {
		return nil
	}
	switch s.Kind {
	case SplitBoolean:
		switch v := v.(type) {
		case bool:
			return domain.Bool(v)
		case int64:
			return domain.Bool(v != 0)
		case float64:
			return domain.Bool(v != 0)
		}
		b, err := strconv.ParseBool(toString(v))
		if err != nil {
			return nil
		}
		return domain.Bool(b)
	case SplitNumber:
		f := toFloat(v)
		if math.IsNaN(f) {
			return nil
		}
		size := s.BucketSize
		if size <= 0 {
			size = 1
		}
		return domain.NumberBucket(f, size)
	case SplitTime:
		t, ok := toTime(v)
		if !ok {
			return nil
		}
		g := s.Grain
		if g.IsZero() {
			g = domain.Grain{Unit: domain.Day, N: 1}
		}
		return g.Bucket(t, loc)
	}
	return domain.String(toString(v))
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprint(v)
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	case string, []byte:
		f, err := strconv.ParseFloat(toString(v), 64)
		if err == nil {
			return f
		}
	}
	return math.NaN()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func toTime(v any) (time.Time, bool) {
	switch v := v.(type) {
	case time.Time:
		return v, true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case float64:
		return time.UnixMilli(int64(v * 1000)).UTC(), true
	case string, []byte:
		s := toString(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// group builds the datums of one split level
func group(q Query, recs []record, level int) *domain.Dataset {
	split := q.Splits[level]

	type bucket struct {
		value domain.Value
		recs  []record
	}
	var order []*bucket
	byKey := make(map[string]*bucket)
	for _, r := range recs {
		v := r.dims[level]
		if v == nil {
			continue
		}
		k := domain.Key(v)
		b := byKey[k]
		if b == nil {
			b = &bucket{value: v}
			byKey[k] = b
			order = append(order, b)
		}
		b.recs = append(b.recs, r)
	}

	data := make([]domain.Datum, 0, len(order))
	for _, b := range order {
		fields := []domain.Field{{Name: split.Dimension, Value: b.value}}
		fields = append(fields, measureFields(q.Measures, b.recs)...)
		if level+1 < len(q.Splits) {
			fields = append(fields, domain.Field{Name: domain.SplitKey, Value: group(q, b.recs, level+1)})
		}
		data = append(data, domain.NewDatum(fields...))
	}

	sortSegments(split, q.Measures, data)
	if split.Limit > 0 && len(data) > split.Limit {
		data = data[:split.Limit]
	}
	return domain.NewDataset(data...)
}

// sortSegments orders continuous splits by segment start and categorical
// ones by the first measure, largest first.
func sortSegments(split Split, measures []Measure, data []domain.Datum) {
	switch split.Kind {
	case SplitNumber, SplitTime:
		sort.SliceStable(data, func(i, j int) bool {
			a, _ := data[i].Value(split.Dimension)
			b, _ := data[j].Value(split.Dimension)
			return lessSegment(a, b)
		})
	case SplitBoolean:
		sort.SliceStable(data, func(i, j int) bool {
			a, _ := data[i].Value(split.Dimension)
			b, _ := data[j].Value(split.Dimension)
			return a == domain.Bool(false) && b == domain.Bool(true)
		})
	default:
		first := measures[0].Name
		sort.SliceStable(data, func(i, j int) bool {
			return data[i].Number(first) > data[j].Number(first)
		})
	}
}

func lessSegment(a, b domain.Value) bool {
	switch a := a.(type) {
	case domain.NumberRange:
		if b, ok := b.(domain.NumberRange); ok {
			return a.Start < b.Start
		}
	case domain.TimeRange:
		if b, ok := b.(domain.TimeRange); ok {
			return a.Start.Before(b.Start)
		}
	}
	return false
}

func measureFields(measures []Measure, recs []record) []domain.Field {
	fields := make([]domain.Field, len(measures))
	for i, m := range measures {
		fields[i] = domain.Field{Name: m.Name, Value: aggregate(m.Aggregate, recs, i)}
	}
	return fields
}

func aggregate(a Aggregate, recs []record, i int) float64 {
	if a == Count {
		return float64(len(recs))
	}
	sum, n := 0.0, 0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range recs {
		v := r.vals[i]
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	switch a {
	case Sum:
		return sum
	case Avg:
		if n == 0 {
			return math.NaN()
		}
		return sum / float64(n)
	case Min:
		if n == 0 {
			return math.NaN()
		}
		return lo
	case Max:
		if n == 0 {
			return math.NaN()
		}
		return hi
	}
	return math.NaN()
}
