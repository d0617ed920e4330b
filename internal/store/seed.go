package store

import (
	"context"
	"time"
)

// Seed inserts a small demo tenant so a fresh install renders a non-empty
// feed. Coordinates are around Dublin to make nearby mode interesting.
func (d *DB) Seed(ctx context.Context, tenantID int64, now time.Time) error {
	exec := func(q string, args ...any) error {
		_, err := d.sql.ExecContext(ctx, q, args...)
		return err
	}

	users := []struct {
		name     string
		location string
		lat, lon float64
		joined   time.Time
	}{
		{"Aoife Byrne", "Dublin", 53.35, -6.26, now.Add(-400 * 24 * time.Hour)},
		{"Liam Walsh", "Swords", 53.43, -6.15, now.Add(-30 * 24 * time.Hour)},
		{"Niamh Doyle", "Longford", 53.80, -7.30, now.Add(-5 * 24 * time.Hour)},
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		res, err := d.sql.ExecContext(ctx,
			`INSERT INTO users (tenant_id, name, avatar_url, location, latitude, longitude, role, created_at)
			 VALUES (?,?,?,?,?,?,?,?)`,
			tenantID, u.name, "", u.location, u.lat, u.lon, "member", u.joined.Unix())
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	posts := []struct {
		author int64
		body   string
		age    time.Duration
	}{
		{ids[0], "Tomato glut at the community garden, help yourselves before Sunday.", 1 * time.Hour},
		{ids[1], "Anyone up for a repair cafe next month? I can cover electronics.", 10 * time.Hour},
		{ids[2], "Welcome pack for new members now lives in the hall.", 100 * time.Hour},
	}
	for _, p := range posts {
		if err := exec(
			`INSERT INTO feed_posts (tenant_id, user_id, content, image_url, visibility, flagged, created_at)
			 VALUES (?,?,?,?, 'public', 0, ?)`,
			tenantID, p.author, p.body, "", now.Add(-p.age).Unix()); err != nil {
			return err
		}
	}

	if err := exec(
		`INSERT INTO listings (tenant_id, user_id, title, description, type, image_url, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		tenantID, ids[0], "Ladder to borrow", "Three-step ladder, pick up weekdays.", "offer", "", "active",
		now.Add(-6*time.Hour).Unix()); err != nil {
		return err
	}
	if err := exec(
		`INSERT INTO polls (tenant_id, user_id, question, description, is_active, created_at)
		 VALUES (?,?,?,?,1,?)`,
		tenantID, ids[1], "Move the monthly meetup to Thursdays?", "", now.Add(-12*time.Hour).Unix()); err != nil {
		return err
	}
	if err := exec(
		`INSERT INTO goals (tenant_id, user_id, title, description, target_date, created_at)
		 VALUES (?,?,?,?,?,?)`,
		tenantID, ids[2], "100 volunteer hours this quarter", "", now.Add(60*24*time.Hour).Unix(),
		now.Add(-20*time.Hour).Unix()); err != nil {
		return err
	}
	if err := exec(
		`INSERT INTO vol_opportunities (tenant_id, created_by, title, description, location, credits_offered, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		tenantID, ids[0], "Meals on wheels driver", "Two hours, Tuesday mornings.", "Dublin", 2,
		now.Add(-3*time.Hour).Unix()); err != nil {
		return err
	}
	if err := exec(
		`INSERT INTO events (tenant_id, user_id, title, description, location, start_time, end_time, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		tenantID, ids[1], "Seed swap", "Bring spares, take spares.", "Community hall",
		now.Add(48*time.Hour).Unix(), now.Add(50*time.Hour).Unix(), now.Add(-8*time.Hour).Unix()); err != nil {
		return err
	}
	if err := exec(
		`INSERT INTO reviews (reviewer_id, receiver_id, rating, comment, created_at)
		 VALUES (?,?,?,?,?)`,
		ids[2], ids[0], 5, "Fixed my bike in an afternoon, legend.", now.Add(-30*time.Hour).Unix()); err != nil {
		return err
	}

	// Engagement and one connection edge
	if err := exec(`INSERT INTO likes (user_id, target_type, target_id, created_at) VALUES (?,?,?,?)`,
		ids[1], "post", 1, now.Add(-30*time.Minute).Unix()); err != nil {
		return err
	}
	if err := exec(`INSERT INTO comments (user_id, target_type, target_id, body, created_at) VALUES (?,?,?,?,?)`,
		ids[2], "post", 1, "On my way!", now.Add(-20*time.Minute).Unix()); err != nil {
		return err
	}
	return exec(`INSERT INTO connections (user_id, other_user_id, created_at) VALUES (?,?,?)`,
		ids[0], ids[1], now.Add(-200*24*time.Hour).Unix())
}
