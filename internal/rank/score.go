package rank

import (
	"math"
	"strings"
	"time"

	"nexusfeed/internal/config"
	"nexusfeed/internal/geo"
	"nexusfeed/internal/model"
)

// Scorer computes relevance scores for feed candidates. All methods are
// pure over their inputs: time comes from the viewer context, never from
// the clock, so re-scoring the same snapshot yields identical results.
type Scorer struct {
	cfg config.RankingConfig
}

func New(cfg config.RankingConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Inputs carries per-request context the score depends on beyond the
// candidate itself.
type Inputs struct {
	// GeoActive is true when the feed is radius-restricted ("nearby").
	GeoActive bool
	RadiusKm  float64
	// Connected is true when the author is a connection of the viewer.
	Connected bool
}

// Engagement applies diminishing returns to raw like/comment counts.
// Comments weigh more than likes: they are higher-intent.
func (s *Scorer) Engagement(likes, comments int) float64 {
	if likes < 0 {
		likes = 0
	}
	if comments < 0 {
		comments = 0
	}
	return s.cfg.LikeWeight*math.Log1p(float64(likes)) +
		s.cfg.CommentWeight*math.Log1p(float64(comments))
}

// Vitality is engagement adjusted for age with an exponential half-life.
func (s *Scorer) Vitality(engagement float64, age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	ageHours := age.Hours()
	return engagement * math.Exp(-ageHours*math.Ln2/s.cfg.HalfLifeHours)
}

// Freshness is 1.0 under the full window, then decays linearly to 0 at the
// end of the configured window.
func (s *Scorer) Freshness(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	h := age.Hours()
	if h <= s.cfg.FreshnessFullHours {
		return 1.0
	}
	if h >= s.cfg.FreshnessWindowHours {
		return 0
	}
	return 1.0 - (h-s.cfg.FreshnessFullHours)/(s.cfg.FreshnessWindowHours-s.cfg.FreshnessFullHours)
}

// Quality multiplies content-signal boosts: media attached, an outbound
// link, substantial body length. Flagged content collapses to a fixed
// penalty multiplier instead. Viewer negative signals (muted author,
// reports against the item) then scale the result down.
func (s *Scorer) Quality(c model.Candidate) float64 {
	n := s.negativeSignals(c)
	if c.Flagged {
		return n * s.cfg.FlaggedPenalty
	}
	q := 1.0
	if c.ImageURL != "" {
		q *= s.cfg.ImageBoost
	}
	if strings.Contains(c.Body, "http://") || strings.Contains(c.Body, "https://") {
		q *= s.cfg.LinkBoost
	}
	if len(c.Body) >= s.cfg.LengthBonusMin {
		q *= s.cfg.LengthBonus
	}
	return n * q
}

// negativeSignals maps viewer-set signals to a visibility multiplier. A
// muted author is barely visible; each report shaves reportPenaltyPer,
// floored at 0.1. Hidden posts never reach scoring at all.
func (s *Scorer) negativeSignals(c model.Candidate) float64 {
	if c.AuthorMuted {
		return s.cfg.MutePenalty
	}
	if c.ReportCount > 0 {
		p := 1.0 - float64(c.ReportCount)*s.cfg.ReportPenaltyPer
		if p < 0.1 {
			p = 0.1
		}
		return p
	}
	return 1.0
}

// Score computes the full breakdown for one candidate.
// Final = vitality x geo x social x quality + freshnessBonus x freshness.
func (s *Scorer) Score(c model.Candidate, v model.ViewerContext, in Inputs) model.ScoreBreakdown {
	age := v.Now.Sub(c.CreatedAt)

	b := model.ScoreBreakdown{
		Engagement: s.Engagement(c.LikesCount, c.CommentsCount),
		Freshness:  s.Freshness(age),
		Geo:        1.0,
		Social:     1.0,
		Quality:    s.Quality(c),
	}
	b.Vitality = s.Vitality(b.Engagement, age)

	if in.GeoActive && v.HasCoordinates() && c.HasCoordinates() {
		d := geo.Distance(*v.Lat, *v.Lon, *c.AuthorLat, *c.AuthorLon)
		b.DistanceKm = &d
		b.Geo = geo.Proximity(d, s.cfg.GeoFullKm, in.RadiusKm, s.cfg.GeoMinimum)
	}
	if in.Connected {
		b.Social = s.cfg.ConnectionBoost
	}

	b.Final = b.Vitality*b.Geo*b.Social*b.Quality + s.cfg.FreshnessBonus*b.Freshness
	return b
}
