package search

import (
	"fmt"
	"testing"
)

func TestTrackerRecentCap(t *testing.T) {
	tr := NewTracker(DefaultRecentCapacity)
	for i := 0; i < 150; i++ {
		tr.Record(fmt.Sprintf("запит %d", i))
	}

	recent := tr.Recent()
	if len(recent) != 100 {
		t.Fatalf("expected 100 recent queries, got %d", len(recent))
	}
	if recent[0] != "запит 149" {
		t.Errorf("most recent query must come first, got %q", recent[0])
	}
	if recent[99] != "запит 50" {
		t.Errorf("oldest kept query must be 'запит 50', got %q", recent[99])
	}
	for i := 0; i < 50; i++ {
		if tr.IsRecent(fmt.Sprintf("запит %d", i)) {
			t.Errorf("query %d must have been evicted", i)
		}
	}
}

func TestTrackerRecordMovesToFront(t *testing.T) {
	tr := NewTracker(3)
	tr.Record("а")
	tr.Record("б")
	tr.Record("  А ")

	recent := tr.Recent()
	if len(recent) != 2 || recent[0] != "а" || recent[1] != "б" {
		t.Errorf("unexpected history %v", recent)
	}
	if tr.Popularity("а") != 2 {
		t.Errorf("expected popularity 2, got %f", tr.Popularity("а"))
	}

	tr.Record("")
	tr.Record("   ")
	if len(tr.Recent()) != 2 {
		t.Errorf("blank queries must not be recorded")
	}
}

func TestTrackerAdapt(t *testing.T) {
	tr := NewTracker(DefaultRecentCapacity)
	base := tr.Popularity("казки")

	tr.Adapt("казки", ActionSelected)
	if got := tr.Popularity("казки"); got != base+selectedReward {
		t.Errorf("selected must add %d, got %f (base %f)", selectedReward, got, base)
	}
	if !tr.IsRecent("казки") {
		t.Errorf("selected suggestion must be recent")
	}

	tr.Adapt("казки", ActionRejected)
	if got := tr.Popularity("казки"); got != base+selectedReward-rejectedPenalty {
		t.Errorf("rejected must subtract %d, got %f", rejectedPenalty, got)
	}

	tr.Record("рідкісне")
	tr.Adapt("рідкісне", ActionRejected)
	tr.Adapt("рідкісне", ActionRejected)
	if got := tr.Popularity("рідкісне"); got != 0 {
		t.Errorf("popularity must floor at 0, got %f", got)
	}

	tr.Adapt("невідоме", ActionRejected)
	if _, ok := tr.popular["невідоме"]; ok {
		t.Errorf("rejecting an unknown query must not create an entry")
	}
}

func TestTrackerTop(t *testing.T) {
	tr := NewTracker(DefaultRecentCapacity)
	top := tr.Top(3)
	if len(top) != 3 {
		t.Fatalf("expected 3, got %d", len(top))
	}
	if top[0].Suggestion != "казки" || top[1].Suggestion != "пригоди" || top[2].Suggestion != "для малюків" {
		t.Errorf("unexpected order %v", Texts(top))
	}
	for _, r := range top {
		if r.Kind != KindPopular {
			t.Errorf("expected popular kind, got %q", r.Kind)
		}
	}
}
