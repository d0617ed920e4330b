package feed

import (
	"context"
	"sort"

	"nexusfeed/internal/logging"
	"nexusfeed/internal/model"
	"nexusfeed/internal/rank"
	"nexusfeed/internal/social"
)

// Mode selects the ordering for one request. It is an explicit input, not
// global state; the HTTP value "recent" maps to chronological.
type Mode string

const (
	ModeRanked        Mode = "ranked"
	ModeChronological Mode = "recent"
)

// ParseMode maps a query value to a mode, defaulting to ranked on
// anything unrecognized.
func ParseMode(s string) Mode {
	switch s {
	case "recent", "chronological":
		return ModeChronological
	default:
		return ModeRanked
	}
}

// Item is a candidate after one aggregation pass: the breakdown is set in
// ranked mode only, badges are filled by the aggregator.
type Item struct {
	Candidate model.Candidate
	Breakdown *model.ScoreBreakdown
	Badges    []model.Badge
}

// RankingPolicy consolidates scoring and ordering for one request. The
// original interleaved ranked and chronological clauses per source
// query, which let the two paths drift; here a single policy is selected
// once and applied uniformly to the merged candidate set.
type RankingPolicy interface {
	Mode() Mode
	Apply(ctx context.Context, cands []model.Candidate) []Item
}

type chronological struct{}

func (chronological) Mode() Mode { return ModeChronological }

func (chronological) Apply(_ context.Context, cands []model.Candidate) []Item {
	items := wrap(cands)
	sort.Slice(items, func(i, j int) bool {
		return lessChrono(items[i].Candidate, items[j].Candidate)
	})
	return items
}

type ranked struct {
	scorer *rank.Scorer
	graph  social.Graph
	viewer model.ViewerContext
	in     rank.Inputs
}

func (ranked) Mode() Mode { return ModeRanked }

func (p ranked) Apply(ctx context.Context, cands []model.Candidate) []Item {
	items := wrap(cands)
	for i := range items {
		c := items[i].Candidate
		connected, err := p.graph.Connected(ctx, p.viewer.ViewerID, c.AuthorID)
		if err != nil {
			// A graph hiccup loses the boost, never the item.
			logging.Warn("social graph lookup failed", map[string]any{"author": c.AuthorID, "err": err.Error()})
			connected = false
		}
		in := p.in
		in.Connected = connected
		b := p.scorer.Score(c, p.viewer, in)
		items[i].Breakdown = &b
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Breakdown.Final != b.Breakdown.Final {
			return a.Breakdown.Final > b.Breakdown.Final
		}
		return lessChrono(a.Candidate, b.Candidate)
	})
	return items
}

// lessChrono is the shared tie-break: createdAt descending, then kind,
// then id descending. Every comparison bottoms out in a strict total
// order so repeated identical requests paginate identically.
func lessChrono(a, b model.Candidate) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID > b.ID
}

func wrap(cands []model.Candidate) []Item {
	items := make([]Item, len(cands))
	for i, c := range cands {
		items[i] = Item{Candidate: c}
	}
	return items
}
