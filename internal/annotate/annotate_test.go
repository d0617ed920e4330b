package annotate

import (
	"testing"
	"time"

	"nexusfeed/internal/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func types(badges []model.Badge) map[string]bool {
	out := map[string]bool{}
	for _, b := range badges {
		out[b.Type] = true
	}
	return out
}

func TestTrendingThreshold(t *testing.T) {
	if got := TrendingThreshold(nil); got != 0 {
		t.Fatalf("empty set: %v", got)
	}
	if got := TrendingThreshold([]float64{3.0}); got != 0 {
		t.Fatalf("single item never trends: %v", got)
	}
	if got := TrendingThreshold([]float64{0, 0, 5.0}); got != 0 {
		t.Fatalf("zeros don't count toward the decile: %v", got)
	}
	vitals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := TrendingThreshold(vitals); got != 10 {
		t.Fatalf("top decile of 1..10 should be 10, got %v", got)
	}
}

func TestBadgesFromBreakdown(t *testing.T) {
	d := 12.0
	b := &model.ScoreBreakdown{Vitality: 5, Geo: 0.9, Social: 1.5, Final: 4.2, DistanceKm: &d}
	c := model.Candidate{CreatedAt: now.Add(-2 * time.Hour)}

	got := types(Badges(c, b, true, 4.0, now))
	for _, want := range []string{"trending", "nearby", "from_connection", "debug_score", "fresh"} {
		if !got[want] {
			t.Fatalf("missing %s badge in %v", want, got)
		}
	}
}

func TestNearbyRequiresGeoActive(t *testing.T) {
	d := 5.0
	b := &model.ScoreBreakdown{Geo: 1.0, Social: 1.0, DistanceKm: &d}
	c := model.Candidate{CreatedAt: now.Add(-48 * time.Hour)}
	if types(Badges(c, b, false, 0, now))["nearby"] {
		t.Fatalf("nearby badge outside nearby mode")
	}
	if !types(Badges(c, b, true, 0, now))["nearby"] {
		t.Fatalf("nearby badge expected when geo is active and proximity high")
	}
}

func TestChronologicalItemsStillGetTimeBadges(t *testing.T) {
	c := model.Candidate{
		CreatedAt:    now.Add(-3 * time.Hour),
		AuthorJoined: now.Add(-5 * 24 * time.Hour),
	}
	got := types(Badges(c, nil, false, 0, now))
	if !got["fresh"] || !got["new_member"] {
		t.Fatalf("want fresh and new_member, got %v", got)
	}
	if got["debug_score"] {
		t.Fatalf("no breakdown means no score badge")
	}

	old := model.Candidate{CreatedAt: now.Add(-48 * time.Hour), AuthorJoined: now.Add(-400 * 24 * time.Hour)}
	if len(Badges(old, nil, false, 0, now)) != 0 {
		t.Fatalf("stale content by a long-time member earns nothing")
	}
}

func TestFilterForViewer(t *testing.T) {
	badges := []model.Badge{
		{Type: "fresh", Label: "Fresh"},
		{Type: "debug_score", Label: "score 1.234", AdminOnly: true},
	}
	kept := FilterForViewer(badges, false)
	if len(kept) != 1 || kept[0].Type != "fresh" {
		t.Fatalf("admin badge leaked: %v", kept)
	}
	if len(FilterForViewer(badges, true)) != 2 {
		t.Fatalf("admins keep everything")
	}
}
