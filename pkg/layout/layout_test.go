package layout

import "testing"

func TestStage_Within(t *testing.T) {
	s := Stage{X: 10, Y: 5, Width: 100, Height: 40}
	in := s.Within(Margin{Top: 2, Right: 3, Bottom: 4, Left: 5})
	want := Stage{X: 15, Y: 7, Width: 92, Height: 34}
	if in != want {
		t.Errorf("Expected %v, got %v", want, in)
	}

	tiny := NewStage(6, 3).Within(Margin{Top: 5, Right: 5, Bottom: 5, Left: 5})
	if tiny.Width < 0 || tiny.Height < 0 {
		t.Errorf("Expected clamped stage, got %v", tiny)
	}
	if tiny.Width != 0 || tiny.Height != 0 {
		t.Errorf("Expected empty stage, got %v", tiny)
	}
}

func TestStage_TransformAndViewBox(t *testing.T) {
	s := Stage{X: 3, Y: 4, Width: 20, Height: 10}
	if got := s.Transform().String(); got != "translate(3,4)" {
		t.Errorf("Unexpected transform %q", got)
	}
	if got := s.ViewBox(); got != "3 4 20 10" {
		t.Errorf("Unexpected view box %q", got)
	}
	x, y := s.Transform().Apply(1, 1)
	lx, ly := s.Local(x, y)
	if lx != 1 || ly != 1 {
		t.Errorf("Expected round trip to (1,1), got (%v,%v)", lx, ly)
	}
	if !s.Contains(3, 4) || s.Contains(23, 4) {
		t.Error("Unexpected containment")
	}
}

func TestCalculate(t *testing.T) {
	stage := NewStage(108, 31)
	l := Calculate(stage, 10, 2, BarConstants)

	sc := l.Scroller
	if sc.Left != 8 || sc.Top != 2 || sc.Right != 1 || sc.Bottom != 2 {
		t.Errorf("Unexpected gutters %+v", sc)
	}
	if sc.BodyWidth != 99 || sc.BodyHeight != 27 {
		t.Errorf("Unexpected body %vx%v", sc.BodyWidth, sc.BodyHeight)
	}
	if l.Segment.Width != 9.9 || l.Segment.Height != 13.5 {
		t.Errorf("Unexpected segment %v", l.Segment)
	}
	if sc.Left+sc.BodyWidth+sc.Right != stage.Width {
		t.Error("Expected gutters and body to partition the width")
	}

	if again := Calculate(stage, 10, 2, BarConstants); again != l {
		t.Error("Expected Calculate to be deterministic")
	}

	single := Calculate(stage, 10, 1, BarConstants)
	if single.Scroller.Top != 1 {
		t.Errorf("Expected no legend row for one series, got top %v", single.Scroller.Top)
	}

	empty := Calculate(NewStage(4, 2), 0, 0, BarConstants)
	if empty.Scroller.BodyWidth < 0 || empty.Scroller.BodyHeight < 0 || empty.Segment.Width != 0 {
		t.Errorf("Unexpected layout for tiny stage %+v", empty)
	}
}

func TestCalculateHeatmap(t *testing.T) {
	l := CalculateHeatmap(NewStage(115, 32), 4, 3)
	sc := l.Scroller
	if sc.Left != 14 || sc.Top != 2 || sc.Bottom != 0 {
		t.Errorf("Unexpected gutters %+v", sc)
	}
	if l.Segment.Width != 25 || l.Segment.Height != 10 {
		t.Errorf("Expected 25x10 cells, got %v", l.Segment)
	}
	if l != Calculate(NewStage(115, 32), 4, 3, HeatmapConstants) {
		t.Error("Expected heatmap layout to use the heatmap gutters")
	}
}

func TestContentWidth(t *testing.T) {
	if got := ContentWidth(10, 5, 80); got != 80 {
		t.Errorf("Expected viewport width, got %v", got)
	}
	l := CalculateBar(NewStage(50, 20), 30, 1)
	w := ContentWidth(30, 3, l.Scroller.BodyWidth)
	if w != 90 {
		t.Fatalf("Expected 90, got %v", w)
	}
	wide := l.WithContentWidth(w, 30)
	if wide.Segment.Width != 3 || wide.Scroller.Left != l.Scroller.Left {
		t.Errorf("Unexpected widened layout %+v", wide)
	}
}
