package scale

import (
	"math"
	"testing"
	"time"

	"github.com/recera/pivot/pkg/domain"
)

func TestLinear_Invertibility(t *testing.T) {
	s, ok := NewLinear(3, 870, 0, 400, Options{})
	if !ok {
		t.Fatal("Expected a scale")
	}
	lo, hi := s.Domain()
	unit := (hi - lo) / 400
	for x := 3.0; x <= 870; x += 17.3 {
		got := float64(s.Invert(s.Calculate(domain.Number(x))).(domain.Number))
		if math.Abs(got-x) > unit {
			t.Errorf("invert(calculate(%v)) = %v, off by more than %v", x, got, unit)
		}
	}
}

func TestLinear_NaNExtentIsNoScale(t *testing.T) {
	for _, ext := range [][2]float64{{math.NaN(), 1}, {0, math.NaN()}, {math.NaN(), math.NaN()}} {
		if s, ok := NewLinear(ext[0], ext[1], 0, 100, BarOptions); ok || s != nil {
			t.Errorf("Expected no scale for extent %v", ext)
		}
	}
}

func TestLinear_NiceIncludesZero(t *testing.T) {
	tests := []struct {
		lo, hi float64
	}{
		{5, 93},
		{0.3, 0.7},
		{1200, 98000},
	}
	for _, tt := range tests {
		s := MustLinear(tt.lo, tt.hi, 0, 300, BarOptions)
		lo, hi := s.Domain()
		if lo != 0 {
			t.Errorf("[%v,%v]: expected lower bound 0, got %v", tt.lo, tt.hi, lo)
		}
		if hi < tt.hi {
			t.Errorf("[%v,%v]: expected upper bound >= %v, got %v", tt.lo, tt.hi, tt.hi, hi)
		}
	}

	s := MustLinear(-80, -3, 0, 300, BarOptions)
	lo, hi := s.Domain()
	if hi != 0 {
		t.Errorf("Expected upper bound 0 for negative data, got %v", hi)
	}
	if lo > -80 {
		t.Errorf("Expected lower bound <= -80, got %v", lo)
	}
}

func TestLinear_SingleValue(t *testing.T) {
	s := MustLinear(0, 0, 0, 100, Options{})
	lo, hi := s.Domain()
	if lo >= hi {
		t.Errorf("Expected a non-empty domain, got [%v,%v]", lo, hi)
	}
}

func TestLinear_Ticks(t *testing.T) {
	s := MustLinear(0, 100, 0, 100, BarOptions)
	ticks := s.Ticks(6)
	if len(ticks) == 0 || len(ticks) > 6 {
		t.Fatalf("Expected between 1 and 6 ticks, got %v", ticks)
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] <= ticks[i-1] {
			t.Errorf("Expected increasing ticks, got %v", ticks)
		}
	}
}

func TestTime_Invertibility(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, ok := NewTime(domain.TimeRange{Start: t0, End: t0.Add(10 * 24 * time.Hour)}, 0, 1000, time.UTC)
	if !ok {
		t.Fatal("Expected a time scale")
	}
	pixel := 10 * 24 * time.Hour / 1000
	for d := time.Duration(0); d <= 10*24*time.Hour; d += 7 * time.Hour {
		ts := t0.Add(d)
		got := s.Invert(s.Calculate(domain.NewTime(ts))).(domain.Time)
		if diff := got.Sub(ts); diff > pixel || diff < -pixel {
			t.Errorf("Expected %v, got %v", ts, got.Time)
		}
	}
	if _, ok := NewTime(domain.TimeRange{}, 0, 100, nil); ok {
		t.Error("Expected no scale for an empty extent")
	}
}

func TestTime_Ticks(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := NewTime(domain.TimeRange{Start: t0, End: t0.Add(7 * 24 * time.Hour)}, 0, 700, time.UTC)
	ticks := s.Ticks(10)
	if len(ticks) != 8 {
		t.Fatalf("Expected 8 daily ticks, got %d: %v", len(ticks), ticks)
	}
	if !ticks[0].Equal(t0) {
		t.Errorf("Expected first tick at %v, got %v", t0, ticks[0])
	}
}

func bandDomain(n int) []domain.Value {
	out := make([]domain.Value, n)
	for i := range out {
		out[i] = domain.NumberRange{Start: float64(i * 10), End: float64(i*10 + 10)}
	}
	return out
}

func TestBand_Bandwidth(t *testing.T) {
	for _, n := range []int{1, 3, 7, 50, 999} {
		for _, w := range []float64{100, 333, 1024} {
			b := NewBand(bandDomain(n), 0, w, 0.1)
			if b.Bandwidth() <= 0 {
				t.Errorf("n=%d w=%v: expected positive bandwidth, got %v", n, w, b.Bandwidth())
			}
			if b.Bandwidth()*float64(n) > w+1e-9 {
				t.Errorf("n=%d w=%v: bands overflow range: %v*%d", n, w, b.Bandwidth(), n)
			}
		}
	}
}

func TestBand_CalculateInvert(t *testing.T) {
	values := bandDomain(4)
	b := NewBand(values, 0, 400, 0)
	for i, v := range values {
		px := b.Calculate(v)
		if px != float64(i*100) {
			t.Errorf("Expected band %d at %d, got %v", i, i*100, px)
		}
		got := b.Invert(px + b.Bandwidth()/2)
		if !domain.ValuesEqual(got, v) {
			t.Errorf("Expected invert to return %v, got %v", v, got)
		}
	}
	if !domain.ValuesEqual(b.Invert(-20), values[0]) || !domain.ValuesEqual(b.Invert(9999), values[3]) {
		t.Error("Expected out-of-range offsets to snap to the edge bands")
	}
	if !math.IsNaN(b.Calculate(domain.NumberRange{Start: 5, End: 6})) {
		t.Error("Expected unknown value to project to NaN")
	}
	if NewBand(nil, 0, 100, 0).Invert(10) != nil {
		t.Error("Expected empty band scale to invert to nil")
	}
}

func TestBand_TimeKeys(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	values := []domain.Value{
		domain.TimeRange{Start: t0, End: t0.Add(time.Hour)},
		domain.TimeRange{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)},
	}
	b := NewBand(values, 0, 200, 0)
	other := domain.TimeRange{Start: t0.Add(time.Hour).In(time.FixedZone("Z", 3600)), End: t0.Add(2 * time.Hour)}
	if b.Calculate(other) != 100 {
		t.Errorf("Expected lookup by instant, got %v", b.Calculate(other))
	}
}

func pointData(positions ...float64) []domain.Datum {
	out := make([]domain.Datum, len(positions))
	for i, p := range positions {
		out[i] = domain.NewDatum(domain.Field{Name: "x", Value: domain.Number(p)}, domain.Field{Name: "id", Value: float64(i)})
	}
	return out
}

func TestFindClosest_Tolerance(t *testing.T) {
	s := MustLinear(0, 200, 0, 200, Options{})
	data := pointData(0, 100, 200)

	d, ok := FindClosest(data, "x", s, 130, 50)
	if !ok {
		t.Fatal("Expected a datum at 130")
	}
	if d.Number("id") != 1 {
		t.Errorf("Expected datum at 100, got id %v", d.Number("id"))
	}

	if _, ok := FindClosest(data, "x", s, 170, 50); ok {
		t.Error("Expected no datum at 170")
	}
	if _, ok := FindClosest(nil, "x", s, 10, 50); ok {
		t.Error("Expected no datum for empty data")
	}
}

func TestFindClosest_TieBreakFirstWins(t *testing.T) {
	s := MustLinear(0, 100, 0, 100, Options{})
	data := pointData(40, 40, 10)
	d, ok := FindClosest(data, "x", s, 50, MaxHoverDist)
	if !ok || d.Number("id") != 0 {
		t.Errorf("Expected first of the tied datums, got %v", d.Number("id"))
	}
}

func TestFindClosest_Segments(t *testing.T) {
	s := MustLinear(0, 100, 0, 100, Options{})
	var data []domain.Datum
	for i := 0; i < 5; i++ {
		data = append(data, domain.NewDatum(domain.Field{Name: "x", Value: domain.NumberRange{Start: float64(i * 20), End: float64(i*20 + 20)}}))
	}
	d, ok := FindClosest(data, "x", s, 45, MaxHoverDist)
	if !ok {
		t.Fatal("Expected a segment")
	}
	v, _ := d.Value("x")
	if !domain.ValuesEqual(v, domain.NumberRange{Start: 40, End: 60}) {
		t.Errorf("Expected the segment under the pointer, got %v", v)
	}
}

func TestFindClosest_Band(t *testing.T) {
	values := bandDomain(3)
	b := NewBand(values, 0, 300, 0)
	var data []domain.Datum
	for _, v := range values {
		data = append(data, domain.NewDatum(domain.Field{Name: "x", Value: v}))
	}
	d, ok := FindClosest(data, "x", b, 250, MaxHoverDist)
	if !ok {
		t.Fatal("Expected a band")
	}
	v, _ := d.Value("x")
	if !domain.ValuesEqual(v, values[2]) {
		t.Errorf("Expected last band, got %v", v)
	}
}

func TestFindClosestNested(t *testing.T) {
	s := MustLinear(0, 200, 0, 200, Options{})
	inner1 := domain.NewDataset(pointData(0, 100)...)
	inner2 := domain.NewDataset(pointData(150)...)
	ds := domain.NewDataset(
		domain.NewDatum(domain.Field{Name: domain.SplitKey, Value: inner1}),
		domain.NewDatum(domain.Field{Name: domain.SplitKey, Value: inner2}),
	)
	d, ok := FindClosestNested(ds, "x", s, 160, MaxHoverDist)
	if !ok {
		t.Fatal("Expected a nested datum")
	}
	if v, _ := d.Value("x"); !domain.ValuesEqual(v, domain.Number(150)) {
		t.Errorf("Expected datum at 150, got %v", v)
	}
}
