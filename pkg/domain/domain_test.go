package domain

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	jan3 := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.FixedZone("X", 3600))
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"time range keyed by UTC start", TimeRange{Start: jan3, End: jan3.Add(time.Hour)}, "2024-01-03T09:00:00Z"},
		{"number range keyed by decimal start", NumberRange{Start: 2.5, End: 5}, "2.5"},
		{"string", String("fr"), "fr"},
		{"bool", Bool(true), "true"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.v); got != tt.want {
				t.Errorf("Expected key %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValuesEqual(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !ValuesEqual(TimeRange{t0, t0.Add(time.Hour)}, TimeRange{t0.In(time.FixedZone("Y", 7200)), t0.Add(time.Hour)}) {
		t.Error("Expected time ranges with same instants to be equal")
	}
	if ValuesEqual(NumberRange{0, 1}, NumberRange{0, 2}) {
		t.Error("Expected different number ranges to differ")
	}
	if ValuesEqual(Number(1), String("1")) {
		t.Error("Expected values of different kinds to differ")
	}
	if !ValuesEqual(nil, nil) || ValuesEqual(nil, Number(0)) {
		t.Error("Unexpected nil equality")
	}
}

func TestRanges(t *testing.T) {
	r := NumberRange{Start: 10, End: 20}
	if !r.Contains(10) || r.Contains(20) {
		t.Error("Expected number range to be half-open")
	}
	if r.Midpoint() != 15 {
		t.Errorf("Expected midpoint 15, got %v", r.Midpoint())
	}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := TimeRange{Start: t0, End: t0.Add(2 * time.Hour)}
	if !tr.Midpoint().Equal(t0.Add(time.Hour)) {
		t.Errorf("Expected midpoint one hour in, got %v", tr.Midpoint())
	}
	if tr.Contains(t0.Add(2 * time.Hour)) {
		t.Error("Expected time range to exclude its end")
	}
}

func TestDatumAndDataset(t *testing.T) {
	inner := NewDataset(
		NewDatum(Field{"channel", String("en")}, Field{"count", 3.0}),
		NewDatum(Field{"channel", String("fr")}, Field{"count", 7.0}),
	)
	root := NewDataset(NewDatum(Field{"count", 10.0}, Field{SplitKey, inner}))

	if root.Depth() != 2 {
		t.Errorf("Expected depth 2, got %d", root.Depth())
	}
	flat := root.Flatten()
	if len(flat) != 2 {
		t.Fatalf("Expected 2 flattened datums, got %d", len(flat))
	}
	lo, hi := root.NestedExtent("count")
	if lo != 3 || hi != 7 {
		t.Errorf("Expected extent [3,7], got [%v,%v]", lo, hi)
	}
	lo, hi = NewDataset().Extent("count")
	if !math.IsNaN(lo) || !math.IsNaN(hi) {
		t.Error("Expected NaN extent for empty dataset")
	}
	if d, ok := inner.FindByValue("channel", String("fr")); !ok || d.Number("count") != 7 {
		t.Error("Expected to find the fr datum")
	}

	d := NewDatum(Field{"a", 1.0}, Field{"b", 2.0}, Field{"a", 3.0})
	fields := d.Fields()
	if len(fields) != 2 || fields[0].Name != "a" || d.Number("a") != 3 {
		t.Errorf("Expected repeated field to keep position and take last value, got %+v", fields)
	}
}

func TestClauseFor(t *testing.T) {
	c := ClauseFor("channel", String("en"))
	if !c.Contains(String("en")) || c.Contains(String("fr")) {
		t.Error("Unexpected string clause membership")
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected panic for point number value")
		}
		if !strings.Contains(r.(string), "added") {
			t.Errorf("Expected panic message to name the dimension, got %v", r)
		}
	}()
	ClauseFor("added", Number(4))
}

func TestHighlightCovers(t *testing.T) {
	t0 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	h := &Highlight{
		Key:     "count",
		Clauses: []Clause{TimeClause{Ref: "time", Ranges: []TimeRange{{t0, t0.Add(24 * time.Hour)}}}},
	}
	if !h.Covers("time", TimeRange{t0.Add(time.Hour), t0.Add(2 * time.Hour)}) {
		t.Error("Expected highlight to cover inner segment")
	}
	if h.Covers("time", TimeRange{t0.Add(24 * time.Hour), t0.Add(48 * time.Hour)}) {
		t.Error("Expected highlight not to cover next day")
	}
	var none *Highlight
	if none.Covers("time", NewTime(t0)) {
		t.Error("Expected nil highlight to cover nothing")
	}
}

func TestFilterMerge(t *testing.T) {
	f := Filter{Clauses: []Clause{
		StringClause{Ref: "channel", Values: []string{"en"}},
		BooleanClause{Ref: "robot", Values: []bool{false}},
	}}
	merged := f.Merge(StringClause{Ref: "channel", Values: []string{"fr"}})
	if len(merged.Clauses) != 2 {
		t.Fatalf("Expected 2 clauses, got %d", len(merged.Clauses))
	}
	c, _ := merged.Clause("channel")
	if !c.Contains(String("fr")) {
		t.Error("Expected channel clause to be replaced")
	}
	if len(f.Clauses) != 2 {
		t.Error("Expected Merge to leave the receiver untouched")
	}
}

func TestGrain(t *testing.T) {
	g, err := ParseGrain("P1D")
	if err != nil {
		t.Fatal(err)
	}
	if g.Unit != Day || g.N != 1 || g.String() != "P1D" {
		t.Errorf("Unexpected grain %+v", g)
	}
	if _, err := ParseGrain("P1DT1H"); err == nil {
		t.Error("Expected mixed-unit duration to be rejected")
	}
	if _, err := ParseGrain("1D"); err == nil {
		t.Error("Expected malformed duration to be rejected")
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	ts := time.Date(2024, 1, 3, 2, 0, 0, 0, time.UTC) // Jan 2 21:00 in New York
	floor := g.Floor(ts, ny)
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, ny)
	if !floor.Equal(want) {
		t.Errorf("Expected floor %v, got %v", want, floor)
	}
	if c := g.Ceil(want, ny); !c.Equal(want) {
		t.Errorf("Expected boundary to ceil to itself, got %v", c)
	}

	hours := MustParseGrain("PT6H")
	b := hours.Bucket(time.Date(2024, 1, 3, 13, 30, 0, 0, time.UTC), time.UTC)
	if b.Start.Hour() != 12 || b.End.Hour() != 18 {
		t.Errorf("Expected [12:00, 18:00), got %v", b)
	}
}

func TestGrain_MultiUnitBuckets(t *testing.T) {
	tests := []struct {
		grain string
		times []time.Time
		want  []TimeRange
	}{
		{
			grain: "P2D",
			times: []time.Time{
				time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
			},
			want: []TimeRange{
				{Start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)},
				{Start: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)},
				{Start: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			grain: "P2W",
			times: []time.Time{
				time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC),
			},
			want: []TimeRange{
				{Start: time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
				{Start: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)},
				{Start: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			grain: "P3D",
			times: []time.Time{
				time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 2, 12, 0, 0, 0, time.UTC),
			},
			want: []TimeRange{
				{Start: time.Date(1969, 12, 29, 0, 0, 0, 0, time.UTC), End: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Start: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(1970, 1, 4, 0, 0, 0, 0, time.UTC)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.grain, func(t *testing.T) {
			g := MustParseGrain(tt.grain)
			for i, ts := range tt.times {
				b := g.Bucket(ts, time.UTC)
				if !b.Start.Equal(tt.want[i].Start) || !b.End.Equal(tt.want[i].End) {
					t.Errorf("Expected %v for %v, got %v", tt.want[i], ts, b)
				}
			}
		})
	}

	// Consecutive buckets tile the line without overlapping
	g := MustParseGrain("P2D")
	tz := time.FixedZone("UTC-5", -5*3600)
	b := g.Bucket(time.Date(2024, 3, 1, 0, 0, 0, 0, tz), tz)
	for i := 0; i < 10; i++ {
		next := g.Bucket(b.End, tz)
		if !next.Start.Equal(b.End) {
			t.Fatalf("Expected bucket to start at %v, got %v", b.End, next.Start)
		}
		if !g.Floor(b.End.Add(-time.Second), tz).Equal(b.Start) {
			t.Errorf("Expected the last second of %v to floor to its start", b)
		}
		b = next
	}
}

func TestNumberBucket(t *testing.T) {
	b := NumberBucket(-3, 5)
	if b.Start != -5 || b.End != 0 {
		t.Errorf("Expected [-5, 0), got %v", b)
	}
}
