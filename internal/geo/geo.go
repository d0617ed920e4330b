package geo

import (
	"math"

	"nexusfeed/internal/model"
)

const earthRadiusKm = 6371

// Distance returns the great-circle distance in km between two coordinates
// using the Haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	latDiff := rad(lat2 - lat1)
	lonDiff := rad(lon2 - lon1)
	a := math.Sin(latDiff/2)*math.Sin(latDiff/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*
			math.Sin(lonDiff/2)*math.Sin(lonDiff/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// ClampRadius bounds a requested radius to [min, max] km. Non-positive
// input falls back to max (the caller asked for "nearby" without a radius,
// keep the widest allowed view).
func ClampRadius(r, min, max float64) float64 {
	if r <= 0 {
		return max
	}
	if r < min {
		return min
	}
	if r > max {
		return max
	}
	return r
}

// FilterByRadius keeps candidates whose author lies within radiusKm of the
// viewer. A candidate at exactly radiusKm is retained. Candidates without
// coordinates are dropped: nearby mode fails closed.
func FilterByRadius(cands []model.Candidate, viewerLat, viewerLon, radiusKm float64) []model.Candidate {
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if !c.HasCoordinates() {
			continue
		}
		if Distance(viewerLat, viewerLon, *c.AuthorLat, *c.AuthorLon) <= radiusKm {
			out = append(out, c)
		}
	}
	return out
}

// Proximity maps a distance to a geo score in [minScore, 1]. Distances
// inside fullKm score 1.0, then the score decays linearly toward minScore
// at radiusKm.
func Proximity(distanceKm, fullKm, radiusKm, minScore float64) float64 {
	if distanceKm <= fullKm {
		return 1.0
	}
	if radiusKm <= fullKm {
		return minScore
	}
	s := 1.0 - (distanceKm-fullKm)/(radiusKm-fullKm)
	if s < minScore {
		return minScore
	}
	if s > 1 {
		return 1
	}
	return s
}
