package model

import "time"

// Kind tags the content source a candidate came from.
type Kind string

const (
	KindPost         Kind = "post"
	KindListing      Kind = "listing"
	KindPoll         Kind = "poll"
	KindGoal         Kind = "goal"
	KindEvent        Kind = "event"
	KindVolunteering Kind = "volunteering"
	KindReview       Kind = "review"
)

// Kinds lists every content kind in fetch order.
func Kinds() []Kind {
	return []Kind{KindPost, KindListing, KindPoll, KindGoal, KindEvent, KindVolunteering, KindReview}
}

// Candidate is a normalized feed entry from any content source, pre-scoring.
// IDs are unique within (kind, tenant). Extra carries kind-specific fields
// untouched by scoring (listing type, event start time, poll options).
type Candidate struct {
	Kind           Kind
	ID             int64
	TenantID       int64
	AuthorID       int64
	AuthorName     string
	AuthorAvatar   string
	AuthorLocation string
	AuthorJoined   time.Time
	Title          string
	Body           string
	ImageURL       string
	CreatedAt      time.Time
	LikesCount     int
	CommentsCount  int
	IsLiked        bool
	AuthorLat      *float64
	AuthorLon      *float64
	Flagged        bool
	// Viewer-relative negative signals, resolved at fetch time
	AuthorMuted bool
	ReportCount int
	Extra       map[string]any
}

// HasCoordinates reports whether the author carries a usable location.
func (c Candidate) HasCoordinates() bool {
	return c.AuthorLat != nil && c.AuthorLon != nil
}

// ViewerContext carries everything viewer-relative that scoring needs.
// It is always passed explicitly; nothing reads ambient request state.
// Now is injected so repeated calls over a frozen candidate set are
// deterministic.
type ViewerContext struct {
	ViewerID int64
	TenantID int64
	Lat      *float64
	Lon      *float64
	IsAdmin  bool
	Now      time.Time
}

// HasCoordinates reports whether the viewer shared a location.
func (v ViewerContext) HasCoordinates() bool {
	return v.Lat != nil && v.Lon != nil
}

// ScoreBreakdown holds the per-component relevance scores for one candidate.
// Derived per request, never persisted.
type ScoreBreakdown struct {
	Engagement float64
	Vitality   float64
	Geo        float64
	Freshness  float64
	Social     float64
	Quality    float64
	Final      float64
	// DistanceKm is set only when both viewer and author have coordinates.
	DistanceKm *float64
}

// Badge explains why a candidate is in the feed. AdminOnly badges are
// stripped for regular viewers before rendering.
type Badge struct {
	Type      string `json:"type"`
	Label     string `json:"label"`
	AdminOnly bool   `json:"-"`
}
