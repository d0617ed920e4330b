package rank

import (
	"testing"
	"time"

	"nexusfeed/internal/config"
	"nexusfeed/internal/model"
)

func testScorer() *Scorer { return New(config.Default().Ranking) }

func candAt(age time.Duration, now time.Time) model.Candidate {
	return model.Candidate{
		Kind:          model.KindPost,
		ID:            1,
		AuthorID:      10,
		LikesCount:    4,
		CommentsCount: 2,
		CreatedAt:     now.Add(-age),
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := testScorer()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := model.ViewerContext{ViewerID: 7, TenantID: 1, Now: now}
	c := candAt(5*time.Hour, now)
	a := s.Score(c, v, Inputs{})
	b := s.Score(c, v, Inputs{})
	if a != b {
		t.Fatalf("same inputs scored differently: %+v vs %+v", a, b)
	}
}

func TestEngagementDiminishingReturns(t *testing.T) {
	s := testScorer()
	step1 := s.Engagement(1, 0) - s.Engagement(0, 0)
	step2 := s.Engagement(100, 0) - s.Engagement(99, 0)
	if step2 >= step1 {
		t.Fatalf("expected diminishing returns, got step1=%f step2=%f", step1, step2)
	}
	if s.Engagement(-3, -1) != 0 {
		t.Fatalf("negative counts should clamp to zero engagement")
	}
	// Comments carry more weight than likes
	if s.Engagement(0, 5) <= s.Engagement(5, 0) {
		t.Fatalf("comments should outweigh likes")
	}
}

func TestVitalityMonotonicDecay(t *testing.T) {
	s := testScorer()
	e := s.Engagement(10, 5)
	newer := s.Vitality(e, 2*time.Hour)
	older := s.Vitality(e, 50*time.Hour)
	if newer < older {
		t.Fatalf("newer item must not decay below older: %f < %f", newer, older)
	}
	if s.Vitality(e, 0) != e {
		t.Fatalf("zero age should not decay")
	}
}

func TestFreshnessWindow(t *testing.T) {
	s := testScorer()
	if got := s.Freshness(30 * time.Minute); got != 1.0 {
		t.Fatalf("under an hour should be fully fresh, got %f", got)
	}
	if got := s.Freshness(24 * time.Hour); got != 0 {
		t.Fatalf("window end should be zero, got %f", got)
	}
	mid := s.Freshness(12 * time.Hour)
	if mid <= 0 || mid >= 1 {
		t.Fatalf("mid-window freshness out of range: %f", mid)
	}
}

func TestRankedAgeOrdering(t *testing.T) {
	// Equal engagement, no connections, geo off: 1h > 10h > 100h strictly.
	s := testScorer()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := model.ViewerContext{ViewerID: 7, TenantID: 1, Now: now}
	b1 := s.Score(candAt(1*time.Hour, now), v, Inputs{})
	b2 := s.Score(candAt(10*time.Hour, now), v, Inputs{})
	b3 := s.Score(candAt(100*time.Hour, now), v, Inputs{})
	if !(b1.Final > b2.Final && b2.Final > b3.Final) {
		t.Fatalf("expected strict age ordering, got %f %f %f", b1.Final, b2.Final, b3.Final)
	}
}

func TestQualityMultipliers(t *testing.T) {
	s := testScorer()
	cfg := config.Default().Ranking

	plain := model.Candidate{Body: "short"}
	if got := s.Quality(plain); got != 1.0 {
		t.Fatalf("plain content should be neutral, got %f", got)
	}
	flagged := model.Candidate{Body: "short", Flagged: true}
	if got := s.Quality(flagged); got != cfg.FlaggedPenalty {
		t.Fatalf("flagged content should collapse to penalty, got %f", got)
	}
	rich := model.Candidate{
		ImageURL: "https://cdn.example/a.jpg",
		Body:     "A long write-up with a link https://example.org and plenty of detail about the repair cafe.",
	}
	want := cfg.ImageBoost * cfg.LinkBoost * cfg.LengthBonus
	if got := s.Quality(rich); got != want {
		t.Fatalf("rich content quality = %f, want %f", got, want)
	}
}

func TestConnectionBoostRaisesFinal(t *testing.T) {
	s := testScorer()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := model.ViewerContext{ViewerID: 7, TenantID: 1, Now: now}
	c := candAt(5*time.Hour, now)
	plain := s.Score(c, v, Inputs{})
	boosted := s.Score(c, v, Inputs{Connected: true})
	if boosted.Final <= plain.Final {
		t.Fatalf("connection boost should raise final: %f <= %f", boosted.Final, plain.Final)
	}
	if boosted.Social != config.Default().Ranking.ConnectionBoost {
		t.Fatalf("social component = %f", boosted.Social)
	}
}

func TestGeoComponentOnlyWhenActive(t *testing.T) {
	s := testScorer()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := 53.35, -6.26
	alat, alon := 53.80, -7.30
	v := model.ViewerContext{ViewerID: 7, TenantID: 1, Lat: &lat, Lon: &lon, Now: now}
	c := candAt(2*time.Hour, now)
	c.AuthorLat, c.AuthorLon = &alat, &alon

	off := s.Score(c, v, Inputs{})
	if off.Geo != 1.0 || off.DistanceKm != nil {
		t.Fatalf("geo off should be neutral: %+v", off)
	}
	on := s.Score(c, v, Inputs{GeoActive: true, RadiusKm: 100})
	if on.Geo >= 1.0 || on.DistanceKm == nil {
		t.Fatalf("distant author should be penalized in geo mode: %+v", on)
	}
}

func TestNegativeSignalsScaleQuality(t *testing.T) {
	s := testScorer()
	cfg := config.Default().Ranking

	clean := model.Candidate{Body: "short"}
	if got := s.Quality(clean); got != 1.0 {
		t.Fatalf("no signals, quality = %v", got)
	}

	muted := clean
	muted.AuthorMuted = true
	if got := s.Quality(muted); got != cfg.MutePenalty {
		t.Fatalf("muted author quality = %v, want %v", got, cfg.MutePenalty)
	}

	reported := clean
	reported.ReportCount = 2
	want := 1.0 - 2*cfg.ReportPenaltyPer
	if got := s.Quality(reported); got != want {
		t.Fatalf("2 reports: quality = %v, want %v", got, want)
	}

	pileOn := clean
	pileOn.ReportCount = 50
	if got := s.Quality(pileOn); got != 0.1 {
		t.Fatalf("report penalty must floor at 0.1, got %v", got)
	}
}

func TestMutedOutranksNothing(t *testing.T) {
	s := testScorer()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := model.ViewerContext{ViewerID: 7, TenantID: 1, Now: now}

	loud := candAt(2*time.Hour, now)
	quiet := candAt(20*time.Hour, now)
	loud.AuthorMuted = true

	a := s.Score(loud, v, Inputs{})
	b := s.Score(quiet, v, Inputs{})
	if a.Final >= b.Final {
		t.Fatalf("muted fresh content (%v) should fall below unmuted old content (%v)", a.Final, b.Final)
	}
}

func TestNegativeSignalsStackWithFlag(t *testing.T) {
	s := testScorer()
	cfg := config.Default().Ranking
	c := model.Candidate{Flagged: true, AuthorMuted: true}
	want := cfg.MutePenalty * cfg.FlaggedPenalty
	if got := s.Quality(c); got != want {
		t.Fatalf("flagged+muted quality = %v, want %v", got, want)
	}
}
