package search

import (
	"testing"
)

func TestNGramPredict(t *testing.T) {
	m := NewNGramModel()
	m.Add("Пригоди кота")
	m.Add("Пригоди кота у місті")
	m.Add("Пригоди Незнайка")

	results := m.Predict("пригоди", 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 predictions, got %v", Texts(results))
	}
	if results[0].Suggestion != "пригоди кота" {
		t.Errorf("most frequent successor must come first, got %q", results[0].Suggestion)
	}
	if results[0].Kind != KindSemantic {
		t.Errorf("expected semantic kind, got %q", results[0].Kind)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %f <= %f", results[0].Score, results[1].Score)
	}

	if got := m.Predict("Великі ПРИГОДИ", 1); len(got) != 1 || got[0].Suggestion != "великі пригоди кота" {
		t.Errorf("prediction must continue the whole input, got %v", Texts(got))
	}
}

func TestNGramNoMatch(t *testing.T) {
	m := NewNGramModel()
	m.Add("Пригоди кота")

	for _, in := range []string{"", "   ", "кота", "невідоме", "!!!"} {
		if got := m.Predict(in, 5); len(got) != 0 {
			t.Errorf("Predict(%q) expected nothing, got %v", in, Texts(got))
		}
	}
}

// pairs never span two separate texts
func TestNGramDocumentBoundary(t *testing.T) {
	m := NewNGramModel()
	m.Add("лис микита")
	m.Add("хитрий кіт")

	if succ := m.Successors("микита"); len(succ) != 0 {
		t.Errorf("'микита' ends a document and must have no successors, got %v", succ)
	}
	if m.Successors("лис")["микита"] != 1 {
		t.Errorf("expected лис→микита once")
	}
}
