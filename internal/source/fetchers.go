// Package source holds one read-only fetcher per content kind. Each
// fetcher returns normalized candidates capped at a per-source limit;
// errors are returned to the aggregator, which treats a failed source as
// an empty contribution.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"nexusfeed/internal/model"
	"nexusfeed/internal/store"
)

// Fetcher pulls candidates of a single kind for one tenant and viewer.
type Fetcher interface {
	Kind() model.Kind
	Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error)
}

// ForStore returns every fetcher wired to the tenant store, in feed order.
func ForStore(db *store.DB) []Fetcher {
	h := db.Handle()
	return []Fetcher{
		&postFetcher{db: h},
		&listingFetcher{db: h},
		&pollFetcher{db: h},
		&goalFetcher{db: h},
		&eventFetcher{db: h},
		&volunteeringFetcher{db: h},
		&reviewFetcher{db: h},
	}
}

func countCol(target, alias string) string {
	return fmt.Sprintf(
		"(SELECT COUNT(*) FROM %s WHERE target_type = '%%s' AND target_id = x.id) AS %s", target, alias)
}

// likesCount / commentsCount / isLiked are the engagement subselects every
// source shares. The owning table is always aliased x.
func likesCount(kind model.Kind) string {
	return fmt.Sprintf(countCol("likes", "likes_count"), kind)
}

func commentsCount(kind model.Kind) string {
	return fmt.Sprintf(countCol("comments", "comments_count"), kind)
}

func isLiked(kind model.Kind, viewerID int64) sq.Sqlizer {
	return sq.Expr(
		"(SELECT COUNT(*) FROM likes WHERE target_type = ? AND target_id = x.id AND user_id = ?) AS is_liked",
		string(kind), viewerID)
}

const authorCols = "u.name, u.avatar_url, u.location, u.latitude, u.longitude, u.created_at"

// authorRow is the shared slice of author columns each scan consumes.
type authorRow struct {
	name     sql.NullString
	avatar   sql.NullString
	location sql.NullString
	lat, lon sql.NullFloat64
	joined   int64
}

func (a authorRow) apply(c *model.Candidate) {
	c.AuthorName = a.name.String
	c.AuthorAvatar = a.avatar.String
	c.AuthorLocation = a.location.String
	c.AuthorJoined = time.Unix(a.joined, 0).UTC()
	if a.lat.Valid && a.lon.Valid {
		lat, lon := a.lat.Float64, a.lon.Float64
		c.AuthorLat, c.AuthorLon = &lat, &lon
	}
}

type postFetcher struct{ db *sql.DB }

func (f *postFetcher) Kind() model.Kind { return model.KindPost }

func (f *postFetcher) Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error) {
	q := sq.Select("x.id", "x.user_id", "x.content", "x.image_url", "x.flagged", "x.created_at", authorCols,
		likesCount(model.KindPost), commentsCount(model.KindPost),
		"(SELECT COUNT(*) FROM reports WHERE target_type = 'post' AND target_id = x.id) AS report_count").
		Column(isLiked(model.KindPost, viewerID)).
		Column(sq.Expr(
			"(SELECT COUNT(*) FROM user_muted_users m WHERE m.user_id = ? AND m.muted_user_id = x.user_id) AS author_muted",
			viewerID)).
		From("feed_posts x").
		Join("users u ON u.id = x.user_id").
		Where(sq.Eq{"x.tenant_id": tenantID}).
		Where(sq.Or{
			sq.Eq{"x.visibility": "public"},
			sq.And{sq.Eq{"x.user_id": viewerID}, sq.NotEq{"x.visibility": "private"}},
		}).
		// A post the viewer hid never comes back, regardless of score.
		Where(sq.Expr(
			"NOT EXISTS (SELECT 1 FROM user_hidden_posts h WHERE h.user_id = ? AND h.post_id = x.id)",
			viewerID)).
		OrderBy("x.created_at DESC", "x.id DESC").
		Limit(uint64(limit))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var (
			c       model.Candidate
			body    sql.NullString
			img     sql.NullString
			flagged int
			created int64
			au      authorRow
			liked   int
			muted   int
		)
		if err := rows.Scan(&c.ID, &c.AuthorID, &body, &img, &flagged, &created,
			&au.name, &au.avatar, &au.location, &au.lat, &au.lon, &au.joined,
			&c.LikesCount, &c.CommentsCount, &c.ReportCount, &liked, &muted); err != nil {
			return nil, err
		}
		c.Kind = model.KindPost
		c.TenantID = tenantID
		c.Body = body.String
		c.ImageURL = img.String
		c.Flagged = flagged != 0
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.IsLiked = liked > 0
		c.AuthorMuted = muted > 0
		au.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

type listingFetcher struct{ db *sql.DB }

func (f *listingFetcher) Kind() model.Kind { return model.KindListing }

func (f *listingFetcher) Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error) {
	q := sq.Select("x.id", "x.user_id", "x.title", "x.description", "x.type", "x.image_url", "x.created_at", authorCols,
		likesCount(model.KindListing), commentsCount(model.KindListing)).
		Column(isLiked(model.KindListing, viewerID)).
		From("listings x").
		LeftJoin("users u ON u.id = x.user_id").
		Where(sq.Eq{"x.tenant_id": tenantID, "x.status": "active"}).
		OrderBy("x.created_at DESC", "x.id DESC").
		Limit(uint64(limit))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var (
			c           model.Candidate
			desc, ltype sql.NullString
			img         sql.NullString
			created     int64
			au          authorRow
			liked       int
		)
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Title, &desc, &ltype, &img, &created,
			&au.name, &au.avatar, &au.location, &au.lat, &au.lon, &au.joined,
			&c.LikesCount, &c.CommentsCount, &liked); err != nil {
			return nil, err
		}
		c.Kind = model.KindListing
		c.TenantID = tenantID
		c.Body = desc.String
		c.ImageURL = img.String
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.IsLiked = liked > 0
		c.Extra = map[string]any{"listing_type": ltype.String}
		au.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

type pollFetcher struct{ db *sql.DB }

func (f *pollFetcher) Kind() model.Kind { return model.KindPoll }

func (f *pollFetcher) Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error) {
	q := sq.Select("x.id", "x.user_id", "x.question", "x.description", "x.created_at", authorCols,
		likesCount(model.KindPoll), commentsCount(model.KindPoll)).
		Column(isLiked(model.KindPoll, viewerID)).
		From("polls x").
		LeftJoin("users u ON u.id = x.user_id").
		Where(sq.Eq{"x.tenant_id": tenantID, "x.is_active": 1}).
		OrderBy("x.created_at DESC", "x.id DESC").
		Limit(uint64(limit))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var (
			c       model.Candidate
			desc    sql.NullString
			created int64
			au      authorRow
			liked   int
		)
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Title, &desc, &created,
			&au.name, &au.avatar, &au.location, &au.lat, &au.lon, &au.joined,
			&c.LikesCount, &c.CommentsCount, &liked); err != nil {
			return nil, err
		}
		c.Kind = model.KindPoll
		c.TenantID = tenantID
		c.Body = desc.String
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.IsLiked = liked > 0
		au.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

type goalFetcher struct{ db *sql.DB }

func (f *goalFetcher) Kind() model.Kind { return model.KindGoal }

func (f *goalFetcher) Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error) {
	q := sq.Select("x.id", "x.user_id", "x.title", "x.description", "x.target_date", "x.created_at", authorCols,
		likesCount(model.KindGoal), commentsCount(model.KindGoal)).
		Column(isLiked(model.KindGoal, viewerID)).
		From("goals x").
		LeftJoin("users u ON u.id = x.user_id").
		Where(sq.Eq{"x.tenant_id": tenantID}).
		OrderBy("x.created_at DESC", "x.id DESC").
		Limit(uint64(limit))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var (
			c       model.Candidate
			desc    sql.NullString
			target  sql.NullInt64
			created int64
			au      authorRow
			liked   int
		)
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Title, &desc, &target, &created,
			&au.name, &au.avatar, &au.location, &au.lat, &au.lon, &au.joined,
			&c.LikesCount, &c.CommentsCount, &liked); err != nil {
			return nil, err
		}
		c.Kind = model.KindGoal
		c.TenantID = tenantID
		c.Body = desc.String
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.IsLiked = liked > 0
		if target.Valid {
			c.Extra = map[string]any{"target_date": time.Unix(target.Int64, 0).UTC()}
		}
		au.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

type eventFetcher struct{ db *sql.DB }

func (f *eventFetcher) Kind() model.Kind { return model.KindEvent }

// Events surface by start time so upcoming ones lead their own source,
// then participate in the shared createdAt/score ordering like everything
// else.
func (f *eventFetcher) Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error) {
	q := sq.Select("x.id", "x.user_id", "x.title", "x.description", "x.location", "x.start_time", "x.created_at", authorCols,
		likesCount(model.KindEvent), commentsCount(model.KindEvent)).
		Column(isLiked(model.KindEvent, viewerID)).
		From("events x").
		LeftJoin("users u ON u.id = x.user_id").
		Where(sq.Eq{"x.tenant_id": tenantID}).
		OrderBy("x.start_time ASC", "x.id DESC").
		Limit(uint64(limit))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var (
			c         model.Candidate
			desc, loc sql.NullString
			start     sql.NullInt64
			created   int64
			au        authorRow
			liked     int
		)
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Title, &desc, &loc, &start, &created,
			&au.name, &au.avatar, &au.location, &au.lat, &au.lon, &au.joined,
			&c.LikesCount, &c.CommentsCount, &liked); err != nil {
			return nil, err
		}
		c.Kind = model.KindEvent
		c.TenantID = tenantID
		c.Body = desc.String
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.IsLiked = liked > 0
		c.Extra = map[string]any{"location": loc.String}
		if start.Valid {
			c.Extra["start_time"] = time.Unix(start.Int64, 0).UTC()
		}
		au.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

type volunteeringFetcher struct{ db *sql.DB }

func (f *volunteeringFetcher) Kind() model.Kind { return model.KindVolunteering }

func (f *volunteeringFetcher) Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error) {
	q := sq.Select("x.id", "x.created_by", "x.title", "x.description", "x.location", "x.credits_offered", "x.created_at", authorCols,
		likesCount(model.KindVolunteering), commentsCount(model.KindVolunteering)).
		Column(isLiked(model.KindVolunteering, viewerID)).
		From("vol_opportunities x").
		LeftJoin("users u ON u.id = x.created_by").
		Where(sq.Eq{"x.tenant_id": tenantID}).
		OrderBy("x.created_at DESC", "x.id DESC").
		Limit(uint64(limit))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var (
			c         model.Candidate
			desc, loc sql.NullString
			credits   sql.NullInt64
			created   int64
			au        authorRow
			liked     int
		)
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Title, &desc, &loc, &credits, &created,
			&au.name, &au.avatar, &au.location, &au.lat, &au.lon, &au.joined,
			&c.LikesCount, &c.CommentsCount, &liked); err != nil {
			return nil, err
		}
		c.Kind = model.KindVolunteering
		c.TenantID = tenantID
		c.Body = desc.String
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.IsLiked = liked > 0
		c.Extra = map[string]any{"location": loc.String, "credits_offered": credits.Int64}
		au.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

type reviewFetcher struct{ db *sql.DB }

func (f *reviewFetcher) Kind() model.Kind { return model.KindReview }

func (f *reviewFetcher) Fetch(ctx context.Context, tenantID, viewerID int64, limit int) ([]model.Candidate, error) {
	q := sq.Select("x.id", "x.reviewer_id", "x.rating", "x.comment", "x.created_at",
		"u.name, u.avatar_url, u.location, u.latitude, u.longitude, u.created_at",
		"r.id", "r.name",
		likesCount(model.KindReview), commentsCount(model.KindReview)).
		Column(isLiked(model.KindReview, viewerID)).
		From("reviews x").
		LeftJoin("users u ON u.id = x.reviewer_id").
		LeftJoin("users r ON r.id = x.receiver_id").
		Where(sq.Eq{"u.tenant_id": tenantID}).
		OrderBy("x.created_at DESC", "x.id DESC").
		Limit(uint64(limit))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := f.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var (
			c            model.Candidate
			rating       int
			body         sql.NullString
			created      int64
			au           authorRow
			receiverID   sql.NullInt64
			receiverName sql.NullString
			liked        int
		)
		if err := rows.Scan(&c.ID, &c.AuthorID, &rating, &body, &created,
			&au.name, &au.avatar, &au.location, &au.lat, &au.lon, &au.joined,
			&receiverID, &receiverName,
			&c.LikesCount, &c.CommentsCount, &liked); err != nil {
			return nil, err
		}
		c.Kind = model.KindReview
		c.TenantID = tenantID
		c.Title = "Left a review for " + orDefault(receiverName.String, "a member")
		c.Body = body.String
		c.CreatedAt = time.Unix(created, 0).UTC()
		c.IsLiked = liked > 0
		c.Extra = map[string]any{
			"rating":        rating,
			"receiver_id":   receiverID.Int64,
			"receiver_name": receiverName.String,
		}
		au.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
