// Package feed merges candidates from every content source, orders them
// under a single ranking policy, annotates them, and slices out one page.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"nexusfeed/internal/annotate"
	"nexusfeed/internal/config"
	"nexusfeed/internal/geo"
	"nexusfeed/internal/logging"
	"nexusfeed/internal/metrics"
	"nexusfeed/internal/model"
	"nexusfeed/internal/rank"
	"nexusfeed/internal/social"
	"nexusfeed/internal/source"
)

var (
	// ErrAllSourcesFailed means every fetcher failed in one pass. Distinct
	// from a legitimately empty feed: callers render a retry affordance
	// for this, an empty state for that.
	ErrAllSourcesFailed = errors.New("all feed sources failed")
	// ErrTenantNotFound is the structural error fatal to a request.
	ErrTenantNotFound = errors.New("tenant not found")
)

// GeoParams restricts the candidate set to a radius around the viewer.
// RadiusKm is clamped by the aggregator; Nearby without viewer
// coordinates degrades to a global feed.
type GeoParams struct {
	Nearby   bool
	RadiusKm float64
}

// Request is one feed page request. Viewer.Now anchors every age and
// decay computation so a request is reproducible.
type Request struct {
	Viewer   model.ViewerContext
	Mode     Mode
	Geo      GeoParams
	Page     int
	PageSize int
}

// Page is one slice of the aggregated feed. Mode reports the effective
// ordering after any cold-start fallback.
type Page struct {
	Items   []Item
	HasMore bool
	Page    int
	Mode    Mode
	Total   int
}

// TenantChecker verifies the tenant exists before any fetch runs.
type TenantChecker interface {
	TenantExists(ctx context.Context, tenantID int64) (bool, error)
}

// Aggregator fans out to the source fetchers and assembles pages. Safe
// for concurrent use: each request operates on its own candidate set.
type Aggregator struct {
	fetchers []source.Fetcher
	graph    social.Graph
	scorer   *rank.Scorer
	cfg      config.FeedConfig

	// Tenants, when set, gates requests on tenant existence.
	Tenants TenantChecker
}

func New(fetchers []source.Fetcher, graph social.Graph, scorer *rank.Scorer, cfg config.FeedConfig) *Aggregator {
	return &Aggregator{fetchers: fetchers, graph: graph, scorer: scorer, cfg: cfg}
}

type fetchResult struct {
	kind  model.Kind
	cands []model.Candidate
	err   error
}

// Aggregate runs one full pass: fetch, filter, order, annotate, paginate.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Page, error) {
	start := time.Now()
	defer metrics.ObserveAggregateDuration(start)

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = a.cfg.PageSize
	}
	if req.Geo.RadiusKm <= 0 {
		req.Geo.RadiusKm = a.cfg.DefaultRadiusKm
	}
	req.Geo.RadiusKm = geo.ClampRadius(req.Geo.RadiusKm, a.cfg.MinRadiusKm, a.cfg.MaxRadiusKm)
	if req.Viewer.Now.IsZero() {
		req.Viewer.Now = time.Now().UTC()
	}

	if a.Tenants != nil {
		ok, err := a.Tenants.TenantExists(ctx, req.Viewer.TenantID)
		if err != nil {
			return Page{}, err
		}
		if !ok {
			return Page{}, ErrTenantNotFound
		}
	}

	cands, failed := a.fetchAll(ctx, req)
	if len(a.fetchers) > 0 && failed == len(a.fetchers) {
		metrics.TotalFailures.Inc()
		return Page{}, ErrAllSourcesFailed
	}

	geoActive := req.Geo.Nearby && req.Viewer.HasCoordinates()
	if geoActive {
		cands = geo.FilterByRadius(cands, *req.Viewer.Lat, *req.Viewer.Lon, req.Geo.RadiusKm)
	}

	pol := a.policyFor(ctx, req, geoActive)
	items := pol.Apply(ctx, cands)
	if pol.Mode() == ModeRanked {
		items = applyAuthorDiversity(items, a.cfg.DiversityMaxConsecutive, a.cfg.DiversityPenalty)
		items = applyTypeDiversity(items, a.cfg.TypeDiversityMaxConsecutive)
	}
	metrics.FeedRequests.WithLabelValues(string(pol.Mode())).Inc()

	a.annotateAll(items, geoActive, req.Viewer)

	total := len(items)
	lo := (req.Page - 1) * req.PageSize
	if lo > total {
		lo = total
	}
	hi := lo + req.PageSize
	if hi > total {
		hi = total
	}
	return Page{
		Items:   items[lo:hi],
		HasMore: hi < total,
		Page:    req.Page,
		Mode:    pol.Mode(),
		Total:   total,
	}, nil
}

// fetchAll fans out to every fetcher with a per-fetch timeout. A failing
// or slow source contributes zero candidates; the error is logged and
// counted, never propagated.
func (a *Aggregator) fetchAll(ctx context.Context, req Request) ([]model.Candidate, int) {
	results := make(chan fetchResult, len(a.fetchers))
	var wg sync.WaitGroup
	for _, f := range a.fetchers {
		wg.Add(1)
		go func(f source.Fetcher) {
			defer wg.Done()
			fctx := ctx
			if a.cfg.FetchTimeoutMS > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.FetchTimeoutMS)*time.Millisecond)
				defer cancel()
			}
			cands, err := f.Fetch(fctx, req.Viewer.TenantID, req.Viewer.ViewerID, a.cfg.PerSourceLimit)
			results <- fetchResult{kind: f.Kind(), cands: cands, err: err}
		}(f)
	}
	wg.Wait()
	close(results)

	var merged []model.Candidate
	failed := 0
	for r := range results {
		if r.err != nil {
			failed++
			metrics.IncSourceError(string(r.kind))
			logging.Error("source fetch failed", map[string]any{"source": string(r.kind), "err": r.err.Error()})
			continue
		}
		merged = append(merged, r.cands...)
	}
	return merged, failed
}

// policyFor picks the ranking policy once per request. Ranked mode with a
// cold-start viewer (no connections, no engagement history) falls back to
// chronological.
func (a *Aggregator) policyFor(ctx context.Context, req Request, geoActive bool) RankingPolicy {
	if req.Mode != ModeRanked {
		return chronological{}
	}
	hasSignal, err := a.graph.HasSignal(ctx, req.Viewer.ViewerID, req.Viewer.Now)
	if err != nil {
		logging.Warn("signal check failed, serving chronological", map[string]any{"err": err.Error()})
		return chronological{}
	}
	if !hasSignal {
		return chronological{}
	}
	return ranked{
		scorer: a.scorer,
		graph:  social.NewMemo(a.graph, req.Viewer.ViewerID),
		viewer: req.Viewer,
		in:     rank.Inputs{GeoActive: geoActive, RadiusKm: req.Geo.RadiusKm},
	}
}

func (a *Aggregator) annotateAll(items []Item, geoActive bool, viewer model.ViewerContext) {
	vitals := make([]float64, 0, len(items))
	for _, it := range items {
		if it.Breakdown != nil {
			vitals = append(vitals, it.Breakdown.Vitality)
		}
	}
	trendingMin := annotate.TrendingThreshold(vitals)
	for i := range items {
		badges := annotate.Badges(items[i].Candidate, items[i].Breakdown, geoActive, trendingMin, viewer.Now)
		items[i].Badges = annotate.FilterForViewer(badges, viewer.IsAdmin)
	}
}
