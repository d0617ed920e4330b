// Package httpapi exposes the feed over the original HTTP contract:
// GET /feed?algo={ranked,recent}&location={global,nearby}&radius=..&page=..
// returning {items, hasMore, page}. Identity arrives as opaque headers
// from the upstream gateway; this layer never authenticates.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"nexusfeed/internal/config"
	"nexusfeed/internal/feed"
	"nexusfeed/internal/logging"
	"nexusfeed/internal/model"
	"nexusfeed/internal/session"
)

// FeedService is the aggregator surface the server depends on.
type FeedService interface {
	Aggregate(ctx context.Context, req feed.Request) (feed.Page, error)
}

type Server struct {
	svc     FeedService
	coords  session.CoordinateSource
	limiter *rate.Limiter
	cfg     config.FeedConfig
}

func NewServer(svc FeedService, coords session.CoordinateSource, cfg config.Config) *Server {
	rps := cfg.Server.RPS
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Server.Burst
	if burst <= 0 {
		burst = int(rps) * 2
	}
	// Fractional rps would otherwise round burst down to zero and reject
	// every request.
	if burst < 1 {
		burst = 1
	}
	return &Server{
		svc:     svc,
		coords:  coords,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cfg:     cfg.Feed,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleFeed)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

type feedItemJSON struct {
	Type          string         `json:"type"`
	ID            int64          `json:"id"`
	AuthorID      int64          `json:"author_id"`
	AuthorName    string         `json:"author_name"`
	AuthorAvatar  string         `json:"author_avatar,omitempty"`
	AuthorLoc     string         `json:"author_location,omitempty"`
	Title         string         `json:"title,omitempty"`
	Body          string         `json:"body,omitempty"`
	ImageURL      string         `json:"image_url,omitempty"`
	CreatedAt     string         `json:"created_at"`
	LikesCount    int            `json:"likes_count"`
	CommentsCount int            `json:"comments_count"`
	IsLiked       bool           `json:"is_liked"`
	Badges        []model.Badge  `json:"badges"`
	Extra         map[string]any `json:"extra,omitempty"`
}

type feedResponseJSON struct {
	Items   []feedItemJSON `json:"items"`
	HasMore bool           `json:"hasMore"`
	Page    int            `json:"page"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", false)
		return
	}
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", true)
		return
	}

	tenantID, err := strconv.ParseInt(r.Header.Get("X-Tenant-ID"), 10, 64)
	if err != nil || tenantID <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Tenant-ID", false)
		return
	}
	// Anonymous viewers are permitted: viewer id 0 means no social boosts
	// and no is_liked flags.
	viewerID, _ := strconv.ParseInt(r.Header.Get("X-Viewer-ID"), 10, 64)
	isAdmin := r.Header.Get("X-Viewer-Role") == "admin"

	q := r.URL.Query()
	mode := feed.ParseMode(q.Get("algo"))
	nearby := q.Get("location") == "nearby"
	radius, _ := strconv.ParseFloat(q.Get("radius"), 64)
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	viewer := model.ViewerContext{
		ViewerID: viewerID,
		TenantID: tenantID,
		IsAdmin:  isAdmin,
		Now:      time.Now().UTC(),
	}
	if viewerID > 0 && s.coords != nil {
		if c, err := s.coords.Coordinates(r.Context(), tenantID, viewerID); err != nil {
			logging.Warn("coordinate lookup failed", map[string]any{"viewer": viewerID, "err": err.Error()})
		} else if c != nil {
			viewer.Lat, viewer.Lon = &c.Lat, &c.Lon
		}
	}

	res, err := s.svc.Aggregate(r.Context(), feed.Request{
		Viewer:   viewer,
		Mode:     mode,
		Geo:      feed.GeoParams{Nearby: nearby, RadiusKm: radius},
		Page:     page,
		PageSize: s.cfg.PageSize,
	})
	switch {
	case errors.Is(err, feed.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "unknown tenant", false)
		return
	case errors.Is(err, feed.ErrAllSourcesFailed):
		writeError(w, http.StatusServiceUnavailable, "feed temporarily unavailable", true)
		return
	case err != nil:
		logging.Error("aggregation failed", map[string]any{"err": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error", true)
		return
	}

	out := feedResponseJSON{Items: make([]feedItemJSON, 0, len(res.Items)), HasMore: res.HasMore, Page: res.Page}
	for _, it := range res.Items {
		c := it.Candidate
		badges := it.Badges
		if badges == nil {
			badges = []model.Badge{}
		}
		out.Items = append(out.Items, feedItemJSON{
			Type:          string(c.Kind),
			ID:            c.ID,
			AuthorID:      c.AuthorID,
			AuthorName:    c.AuthorName,
			AuthorAvatar:  c.AuthorAvatar,
			AuthorLoc:     c.AuthorLocation,
			Title:         c.Title,
			Body:          c.Body,
			ImageURL:      c.ImageURL,
			CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
			LikesCount:    c.LikesCount,
			CommentsCount: c.CommentsCount,
			IsLiked:       c.IsLiked,
			Badges:        badges,
			Extra:         c.Extra,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, retryable bool) {
	writeJSON(w, status, map[string]any{"error": msg, "retryable": retryable})
}
