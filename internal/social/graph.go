// Package social answers the two questions the ranking core asks of the
// social graph: is this author a connection of the viewer, and does the
// viewer have enough signal for ranked mode at all.
package social

import (
	"context"
	"time"

	"nexusfeed/internal/store"
)

// Graph is the collaborator interface the aggregator depends on.
type Graph interface {
	Connected(ctx context.Context, viewerID, authorID int64) (bool, error)
	// HasSignal reports whether the viewer has any connections or
	// engagement within the lookback window ending at now. Without signal,
	// ranked mode falls back to chronological.
	HasSignal(ctx context.Context, viewerID int64, now time.Time) (bool, error)
}

// StoreGraph implements Graph over the tenant store.
type StoreGraph struct {
	db       *store.DB
	lookback time.Duration
}

func NewStoreGraph(db *store.DB, lookbackDays int) *StoreGraph {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &StoreGraph{db: db, lookback: time.Duration(lookbackDays) * 24 * time.Hour}
}

func (g *StoreGraph) Connected(ctx context.Context, viewerID, authorID int64) (bool, error) {
	if viewerID == 0 || authorID == 0 || viewerID == authorID {
		return false, nil
	}
	return g.db.AreConnected(ctx, viewerID, authorID)
}

func (g *StoreGraph) HasSignal(ctx context.Context, viewerID int64, now time.Time) (bool, error) {
	if viewerID == 0 {
		return false, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	n, err := g.db.CountConnections(ctx, viewerID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	e, err := g.db.CountViewerEngagement(ctx, viewerID, now.Add(-g.lookback))
	if err != nil {
		return false, err
	}
	return e > 0, nil
}

// Memo wraps a Graph and caches Connected answers for the lifetime of one
// aggregation pass, so a feed with many items from one author costs a
// single lookup.
type Memo struct {
	next  Graph
	seen  map[int64]bool
	owner int64
}

func NewMemo(next Graph, viewerID int64) *Memo {
	return &Memo{next: next, seen: make(map[int64]bool), owner: viewerID}
}

func (m *Memo) Connected(ctx context.Context, viewerID, authorID int64) (bool, error) {
	if viewerID == m.owner {
		if v, ok := m.seen[authorID]; ok {
			return v, nil
		}
	}
	v, err := m.next.Connected(ctx, viewerID, authorID)
	if err != nil {
		return false, err
	}
	if viewerID == m.owner {
		m.seen[authorID] = v
	}
	return v, nil
}

func (m *Memo) HasSignal(ctx context.Context, viewerID int64, now time.Time) (bool, error) {
	return m.next.HasSignal(ctx, viewerID, now)
}
