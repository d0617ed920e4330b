// Package annotate derives "why you're seeing this" badges from score
// components. Badges are a pure mapping; visibility gating strips the
// admin-only ones for regular viewers.
package annotate

import (
	"fmt"
	"sort"
	"time"

	"nexusfeed/internal/model"
)

const (
	newMemberDays = 14
	freshHours    = 24
	nearbyGeoMin  = 0.8
)

// TrendingThreshold returns the vitality value marking the top decile of
// the candidate set. Zero when fewer than two items carry vitality.
func TrendingThreshold(vitals []float64) float64 {
	nz := make([]float64, 0, len(vitals))
	for _, v := range vitals {
		if v > 0 {
			nz = append(nz, v)
		}
	}
	if len(nz) < 2 {
		return 0
	}
	sort.Float64s(nz)
	idx := int(float64(len(nz)) * 0.9)
	if idx >= len(nz) {
		idx = len(nz) - 1
	}
	return nz[idx]
}

// Badges maps one candidate's breakdown to its reason tags. geoActive
// marks a radius-restricted feed; trendingMin is the top-decile vitality
// cutoff computed over the whole aggregation pass (zero disables the
// trending badge).
func Badges(c model.Candidate, b *model.ScoreBreakdown, geoActive bool, trendingMin float64, now time.Time) []model.Badge {
	var out []model.Badge
	if b != nil {
		if trendingMin > 0 && b.Vitality >= trendingMin {
			out = append(out, model.Badge{Type: "trending", Label: "Trending"})
		}
		if geoActive && b.Geo >= nearbyGeoMin && b.DistanceKm != nil {
			out = append(out, model.Badge{Type: "nearby", Label: "Nearby"})
		}
		if b.Social > 1 {
			out = append(out, model.Badge{Type: "from_connection", Label: "From your network"})
		}
		out = append(out, model.Badge{
			Type:      "debug_score",
			Label:     fmt.Sprintf("score %.3f", b.Final),
			AdminOnly: true,
		})
	}
	if now.Sub(c.CreatedAt) <= freshHours*time.Hour {
		out = append(out, model.Badge{Type: "fresh", Label: "Fresh"})
	}
	if !c.AuthorJoined.IsZero() && now.Sub(c.AuthorJoined) <= newMemberDays*24*time.Hour {
		out = append(out, model.Badge{Type: "new_member", Label: "New Member"})
	}
	return out
}

// FilterForViewer drops admin-only badges for non-admin viewers.
func FilterForViewer(badges []model.Badge, isAdmin bool) []model.Badge {
	if isAdmin {
		return badges
	}
	out := badges[:0:0]
	for _, b := range badges {
		if !b.AdminOnly {
			out = append(out, b)
		}
	}
	return out
}
