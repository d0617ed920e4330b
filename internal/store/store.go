package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the tenant-scoped SQLite data store the feed reads from. The
// feed core never writes content rows; mutation belongs to the upstream
// like/comment/post services.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

// Handle exposes the underlying connection for the source fetchers.
func (d *DB) Handle() *sql.DB { return d.sql }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS users (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tenant_id INTEGER NOT NULL,
	  name TEXT NOT NULL,
	  avatar_url TEXT,
	  location TEXT,
	  latitude REAL,
	  longitude REAL,
	  role TEXT NOT NULL DEFAULT 'member',
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS feed_posts (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tenant_id INTEGER NOT NULL,
	  user_id INTEGER NOT NULL,
	  content TEXT,
	  image_url TEXT,
	  visibility TEXT NOT NULL DEFAULT 'public',
	  flagged INTEGER NOT NULL DEFAULT 0,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_tenant_created ON feed_posts(tenant_id, created_at);
	CREATE TABLE IF NOT EXISTS listings (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tenant_id INTEGER NOT NULL,
	  user_id INTEGER NOT NULL,
	  title TEXT NOT NULL,
	  description TEXT,
	  type TEXT,
	  image_url TEXT,
	  status TEXT NOT NULL DEFAULT 'active',
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS polls (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tenant_id INTEGER NOT NULL,
	  user_id INTEGER NOT NULL,
	  question TEXT NOT NULL,
	  description TEXT,
	  is_active INTEGER NOT NULL DEFAULT 1,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS goals (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tenant_id INTEGER NOT NULL,
	  user_id INTEGER NOT NULL,
	  title TEXT NOT NULL,
	  description TEXT,
	  target_date INTEGER,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS vol_opportunities (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tenant_id INTEGER NOT NULL,
	  created_by INTEGER NOT NULL,
	  title TEXT NOT NULL,
	  description TEXT,
	  location TEXT,
	  credits_offered INTEGER,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tenant_id INTEGER NOT NULL,
	  user_id INTEGER NOT NULL,
	  title TEXT NOT NULL,
	  description TEXT,
	  location TEXT,
	  start_time INTEGER,
	  end_time INTEGER,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS reviews (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  reviewer_id INTEGER NOT NULL,
	  receiver_id INTEGER NOT NULL,
	  rating INTEGER NOT NULL,
	  comment TEXT,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS likes (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  user_id INTEGER NOT NULL,
	  target_type TEXT NOT NULL,
	  target_id INTEGER NOT NULL,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_likes_target ON likes(target_type, target_id);
	CREATE TABLE IF NOT EXISTS comments (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  user_id INTEGER NOT NULL,
	  target_type TEXT NOT NULL,
	  target_id INTEGER NOT NULL,
	  body TEXT,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comments_target ON comments(target_type, target_id);
	CREATE TABLE IF NOT EXISTS connections (
	  user_id INTEGER NOT NULL,
	  other_user_id INTEGER NOT NULL,
	  created_at INTEGER NOT NULL,
	  PRIMARY KEY (user_id, other_user_id)
	);
	CREATE TABLE IF NOT EXISTS user_hidden_posts (
	  user_id INTEGER NOT NULL,
	  post_id INTEGER NOT NULL,
	  created_at INTEGER NOT NULL,
	  PRIMARY KEY (user_id, post_id)
	);
	CREATE TABLE IF NOT EXISTS user_muted_users (
	  user_id INTEGER NOT NULL,
	  muted_user_id INTEGER NOT NULL,
	  created_at INTEGER NOT NULL,
	  PRIMARY KEY (user_id, muted_user_id)
	);
	CREATE TABLE IF NOT EXISTS reports (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  reporter_id INTEGER NOT NULL,
	  target_type TEXT NOT NULL,
	  target_id INTEGER NOT NULL,
	  reason TEXT,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_target ON reports(target_type, target_id);
	`)
	return err
}

// ViewerCoordinates returns the stored lat/lon for a viewer, or nils when
// the profile has no location.
func (d *DB) ViewerCoordinates(ctx context.Context, tenantID, viewerID int64) (*float64, *float64, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT latitude, longitude FROM users WHERE id=? AND tenant_id=?`, viewerID, tenantID)
	var lat, lon sql.NullFloat64
	if err := row.Scan(&lat, &lon); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if !lat.Valid || !lon.Valid {
		return nil, nil, nil
	}
	return &lat.Float64, &lon.Float64, nil
}

// ViewerRole returns the viewer's role, defaulting to "member" for
// unknown users.
func (d *DB) ViewerRole(ctx context.Context, tenantID, viewerID int64) (string, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT role FROM users WHERE id=? AND tenant_id=?`, viewerID, tenantID)
	var role string
	if err := row.Scan(&role); err != nil {
		if err == sql.ErrNoRows {
			return "member", nil
		}
		return "", err
	}
	return role, nil
}

// TenantExists reports whether any user row belongs to the tenant. A
// missing tenant is the one structural error fatal to a feed request.
func (d *DB) TenantExists(ctx context.Context, tenantID int64) (bool, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id=?`, tenantID)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// AreConnected reports an edge in either direction between two users.
func (d *DB) AreConnected(ctx context.Context, userID, otherID int64) (bool, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connections
		 WHERE (user_id=? AND other_user_id=?) OR (user_id=? AND other_user_id=?)`,
		userID, otherID, otherID, userID)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountConnections returns the viewer's connection count.
func (d *DB) CountConnections(ctx context.Context, userID int64) (int, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connections WHERE user_id=? OR other_user_id=?`, userID, userID)
	var n int
	err := row.Scan(&n)
	return n, err
}

// CountViewerEngagement counts likes and comments made by the viewer
// since the given time.
func (d *DB) CountViewerEngagement(ctx context.Context, userID int64, since time.Time) (int, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM likes WHERE user_id=? AND created_at>=?)
		 + (SELECT COUNT(*) FROM comments WHERE user_id=? AND created_at>=?)`,
		userID, since.Unix(), userID, since.Unix())
	var n int
	err := row.Scan(&n)
	return n, err
}
