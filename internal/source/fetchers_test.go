package source

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nexusfeed/internal/model"
	"nexusfeed/internal/store"
)

var seedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openSeeded(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Seed(context.Background(), 1, seedNow); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func TestEveryKindReturnsRows(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	for _, f := range ForStore(db) {
		cands, err := f.Fetch(ctx, 1, 2, 15)
		if err != nil {
			t.Fatalf("%s: %v", f.Kind(), err)
		}
		if len(cands) == 0 {
			t.Fatalf("%s: no candidates from seeded store", f.Kind())
		}
		for _, c := range cands {
			if c.Kind != f.Kind() {
				t.Fatalf("fetcher %s produced kind %s", f.Kind(), c.Kind)
			}
			if c.TenantID != 1 {
				t.Fatalf("%s: tenant leak, got %d", f.Kind(), c.TenantID)
			}
			if c.AuthorName == "" {
				t.Fatalf("%s: author not joined in", f.Kind())
			}
		}
	}
}

func TestPostEngagementCounts(t *testing.T) {
	db := openSeeded(t)
	cands, err := (&postFetcher{db: db.Handle()}).Fetch(context.Background(), 1, 2, 15)
	if err != nil {
		t.Fatal(err)
	}
	var first *model.Candidate
	for i := range cands {
		if cands[i].ID == 1 {
			first = &cands[i]
		}
	}
	if first == nil {
		t.Fatal("seeded post 1 missing")
	}
	if first.LikesCount != 1 || first.CommentsCount != 1 {
		t.Fatalf("post 1 counts = %d likes / %d comments, want 1/1", first.LikesCount, first.CommentsCount)
	}
	if !first.IsLiked {
		t.Fatalf("viewer 2 liked post 1, IsLiked should be true")
	}
	if !first.HasCoordinates() {
		t.Fatalf("seeded authors carry coordinates")
	}
}

func TestPostVisibility(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	ins := func(userID int64, visibility string) {
		t.Helper()
		_, err := db.Handle().ExecContext(ctx,
			`INSERT INTO feed_posts (tenant_id, user_id, content, image_url, visibility, flagged, created_at)
			 VALUES (1,?,?, '', ?, 0, ?)`,
			userID, visibility+" post", visibility, seedNow.Unix())
		if err != nil {
			t.Fatal(err)
		}
	}
	ins(1, "private")
	ins(2, "connections")

	f := &postFetcher{db: db.Handle()}
	fetch := func(viewer int64) map[string]bool {
		cands, err := f.Fetch(ctx, 1, viewer, 50)
		if err != nil {
			t.Fatal(err)
		}
		got := map[string]bool{}
		for _, c := range cands {
			got[c.Body] = true
		}
		return got
	}

	asStranger := fetch(3)
	if asStranger["private post"] || asStranger["connections post"] {
		t.Fatalf("non-public posts leaked to a stranger: %v", asStranger)
	}
	asOwner := fetch(2)
	if !asOwner["connections post"] {
		t.Fatalf("authors should see their own non-private posts")
	}
	asPrivateOwner := fetch(1)
	if asPrivateOwner["private post"] {
		t.Fatalf("private posts stay out of the feed even for the author")
	}
}

func TestEventsOrderedByStartTime(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	_, err := db.Handle().ExecContext(ctx,
		`INSERT INTO events (tenant_id, user_id, title, description, location, start_time, end_time, created_at)
		 VALUES (1, 1, 'Earlier thing', '', 'Hall', ?, ?, ?)`,
		seedNow.Add(24*time.Hour).Unix(), seedNow.Add(26*time.Hour).Unix(), seedNow.Add(-1*time.Hour).Unix())
	if err != nil {
		t.Fatal(err)
	}
	cands, err := (&eventFetcher{db: db.Handle()}).Fetch(ctx, 1, 2, 15)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 2 {
		t.Fatalf("want 2 events, got %d", len(cands))
	}
	if cands[0].Title != "Earlier thing" {
		t.Fatalf("events should come back soonest-first, got %q", cands[0].Title)
	}
}

func TestReviewTitleNamesReceiver(t *testing.T) {
	db := openSeeded(t)
	cands, err := (&reviewFetcher{db: db.Handle()}).Fetch(context.Background(), 1, 2, 15)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("want 1 review, got %d", len(cands))
	}
	if cands[0].Title != "Left a review for Aoife Byrne" {
		t.Fatalf("bad review title %q", cands[0].Title)
	}
	if cands[0].Extra["rating"] != 5 {
		t.Fatalf("rating not carried through: %v", cands[0].Extra)
	}
}

func TestFetchErrorSurfaces(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	if _, err := db.Handle().ExecContext(ctx, `DROP TABLE reviews`); err != nil {
		t.Fatal(err)
	}
	if _, err := (&reviewFetcher{db: db.Handle()}).Fetch(ctx, 1, 2, 15); err == nil {
		t.Fatalf("missing table should surface as an error, not an empty slice")
	}
}

func TestTenantIsolation(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	for _, f := range ForStore(db) {
		cands, err := f.Fetch(ctx, 99, 2, 15)
		if err != nil {
			t.Fatalf("%s: %v", f.Kind(), err)
		}
		if len(cands) != 0 {
			t.Fatalf("%s: tenant 99 should be empty, got %d rows", f.Kind(), len(cands))
		}
	}
}

func TestHiddenPostsExcluded(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	if _, err := db.Handle().ExecContext(ctx,
		`INSERT INTO user_hidden_posts (user_id, post_id, created_at) VALUES (2, 1, ?)`,
		seedNow.Unix()); err != nil {
		t.Fatal(err)
	}

	f := &postFetcher{db: db.Handle()}
	cands, err := f.Fetch(ctx, 1, 2, 15)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		if c.ID == 1 {
			t.Fatalf("post 1 is hidden by viewer 2 and must not come back")
		}
	}

	// Other viewers still see it.
	cands, err = f.Fetch(ctx, 1, 3, 15)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range cands {
		if c.ID == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("hides are per-viewer, post 1 missing for viewer 3")
	}
}

func TestMutedAuthorFlagged(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	// Viewer 2 mutes user 1, the author of post 1.
	if _, err := db.Handle().ExecContext(ctx,
		`INSERT INTO user_muted_users (user_id, muted_user_id, created_at) VALUES (2, 1, ?)`,
		seedNow.Unix()); err != nil {
		t.Fatal(err)
	}

	cands, err := (&postFetcher{db: db.Handle()}).Fetch(ctx, 1, 2, 15)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		if c.AuthorID == 1 && !c.AuthorMuted {
			t.Fatalf("post %d by muted author should carry AuthorMuted", c.ID)
		}
		if c.AuthorID != 1 && c.AuthorMuted {
			t.Fatalf("post %d author is not muted", c.ID)
		}
	}
}

func TestReportCountCarried(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := db.Handle().ExecContext(ctx,
			`INSERT INTO reports (reporter_id, target_type, target_id, reason, created_at)
			 VALUES (3, 'post', 2, 'spam', ?)`, seedNow.Unix()); err != nil {
			t.Fatal(err)
		}
	}

	cands, err := (&postFetcher{db: db.Handle()}).Fetch(ctx, 1, 2, 15)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cands {
		switch c.ID {
		case 2:
			if c.ReportCount != 2 {
				t.Fatalf("post 2 reports = %d, want 2", c.ReportCount)
			}
		default:
			if c.ReportCount != 0 {
				t.Fatalf("post %d should be unreported", c.ID)
			}
		}
	}
}
