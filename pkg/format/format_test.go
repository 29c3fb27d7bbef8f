package format

import (
	"math"
	"testing"
	"time"

	"github.com/recera/pivot/pkg/domain"
)

func ptr(v float64) *float64 { return &v }

func TestFormatDelta(t *testing.T) {
	d := FormatDelta(ptr(10), ptr(5))
	if d == nil {
		t.Fatal("Expected a delta")
	}
	if d.Delta != 5 || d.DeltaRatio != 1 || d.DeltaSign != 1 {
		t.Errorf("Expected {5 1 1}, got %+v", *d)
	}
	if got := d.Format(nil); got != "+5 (+100.0%)" {
		t.Errorf("Unexpected rendering %q", got)
	}

	if FormatDelta(nil, ptr(5)) != nil {
		t.Error("Expected nil for a missing current value")
	}
	if FormatDelta(ptr(5), nil) != nil {
		t.Error("Expected nil for a missing previous value")
	}

	inf := FormatDelta(ptr(100), ptr(0))
	if !math.IsInf(inf.DeltaRatio, 1) {
		t.Errorf("Expected infinite ratio, got %v", inf.DeltaRatio)
	}
	if inf.Percent() != "" {
		t.Errorf("Expected no percentage, got %q", inf.Percent())
	}
	if got := inf.Format(nil); got != "+100" {
		t.Errorf("Expected no percentage suffix, got %q", got)
	}

	down := FormatDelta(ptr(5), ptr(10))
	if down.DeltaSign != -1 || down.Format(nil) != "-5 (-50.0%)" {
		t.Errorf("Unexpected negative delta %+v %q", *down, down.Format(nil))
	}

	flat := FormatDelta(ptr(0), ptr(0))
	if flat.DeltaSign != 0 || flat.Percent() != "" {
		t.Errorf("Expected a flat delta without percentage, got %+v", *flat)
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1234, "1,234"},
		{-98765, "-98,765"},
		{12.5, "12.5"},
		{1.23456, "1.23"},
		{math.NaN(), "-"},
	}
	for _, tt := range tests {
		if got := Number(tt.in); got != tt.want {
			t.Errorf("Number(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
	if got := Number(2500000); got != "2.5 M" {
		t.Errorf("Expected SI formatting, got %q", got)
	}
}

func TestValue(t *testing.T) {
	jan3 := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   domain.Value
		want string
	}{
		{domain.String("web"), "web"},
		{domain.Bool(true), "true"},
		{domain.NumberRange{Start: 0, End: 1000}, "0 to 1,000"},
		{domain.TimeRange{Start: jan3, End: jan3.AddDate(0, 0, 1)}, "2024-01-03 to 2024-01-04"},
		{domain.TimeRange{Start: jan3.Add(time.Hour), End: jan3.Add(2 * time.Hour)}, "2024-01-03 01:00 to 2024-01-03 02:00"},
		{domain.NewTime(jan3.Add(90 * time.Minute)), "2024-01-03 01:30"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Value(tt.in, time.UTC); got != tt.want {
			t.Errorf("Value(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
