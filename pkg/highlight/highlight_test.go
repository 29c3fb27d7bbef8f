package highlight

import (
	"testing"

	"github.com/recera/pivot/pkg/domain"
)

func TestStore_SaveAcceptDrop(t *testing.T) {
	country := domain.StringClause{Ref: "country", Values: []string{"FR"}}
	s := NewStore(domain.Filter{Clauses: []domain.Clause{country}})

	var changes int
	release := s.OnChange(func() { changes++ })
	defer release()

	if s.Highlight() != nil {
		t.Fatal("Expected no highlight initially")
	}

	channel := domain.StringClause{Ref: "channel", Values: []string{"web"}}
	s.SaveHighlight([]domain.Clause{channel}, "added")
	h := s.Highlight()
	if h == nil || h.Key != "added" || !h.Covers("channel", domain.String("web")) {
		t.Fatalf("Unexpected highlight %+v", h)
	}

	s.AcceptHighlight()
	if s.Highlight() != nil {
		t.Error("Expected accept to clear the pending highlight")
	}
	if _, ok := s.Filter().Clause("channel"); !ok {
		t.Error("Expected accepted clause in the filter")
	}
	if _, ok := s.Filter().Clause("country"); !ok {
		t.Error("Expected existing clause kept")
	}

	// Nothing pending: no change
	s.DropHighlight()
	s.AcceptHighlight()
	if changes != 2 {
		t.Errorf("Expected 2 changes, got %d", changes)
	}
	if s.Version() != 2 {
		t.Errorf("Expected version 2, got %d", s.Version())
	}

	s.SaveHighlight([]domain.Clause{channel}, "added")
	s.DropHighlight()
	if s.Highlight() != nil {
		t.Error("Expected drop to clear the highlight")
	}
}

func TestStore_OnChangeRelease(t *testing.T) {
	s := NewStore(domain.Filter{})
	var calls int
	release := s.OnChange(func() { calls++ })
	release()
	release()

	s.SaveHighlight(nil, "k")
	if calls != 0 {
		t.Errorf("Expected released listener not to fire, got %d", calls)
	}
}

func TestStore_HighlightIsCopy(t *testing.T) {
	s := NewStore(domain.Filter{})
	clauses := []domain.Clause{domain.StringClause{Ref: "a", Values: []string{"x"}}}
	s.SaveHighlight(clauses, "k")
	clauses[0] = domain.StringClause{Ref: "b"}

	h := s.Highlight()
	if h.Clauses[0].Reference() != "a" {
		t.Error("Expected store to keep its own copy of the clauses")
	}
	h.Key = "changed"
	if s.Highlight().Key != "k" {
		t.Error("Expected returned highlight to be a copy")
	}
}

func TestRecorder(t *testing.T) {
	var c Clicker = &Recorder{}
	c.SaveHighlight(nil, "k")
	c.DropHighlight()
	c.AcceptHighlight()

	r := c.(*Recorder)
	if len(r.Calls) != 3 || r.Calls[0].Op != "save" || r.Calls[0].Key != "k" || r.Calls[2].Op != "accept" {
		t.Errorf("Unexpected calls %+v", r.Calls)
	}
}
