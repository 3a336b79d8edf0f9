package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/personalization/internal/models"
	"github.com/goccy/go-json"
)

// ActivityRepository reads raw user activity from the activity store tables
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// LoadUser returns the base user record. A user without a row gets an empty record.
func (r *ActivityRepository) LoadUser(ctx context.Context, userID string) (*models.UserRecord, error) {
	query := `
		SELECT id, location, industry, career_goals, interests, follower_count, following_count, similar_users, created_at
		FROM activity_users
		WHERE id = $1
	`
	user := &models.UserRecord{}
	var careerGoals, interests, similar []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Location,
		&user.Industry,
		&careerGoals,
		&interests,
		&user.FollowerCount,
		&user.FollowingCount,
		&similar,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.UserRecord{ID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	for _, field := range []struct {
		raw  []byte
		dest *[]string
		name string
	}{
		{careerGoals, &user.CareerGoals, "career_goals"},
		{interests, &user.Interests, "interests"},
		{similar, &user.SimilarUsers, "similar_users"},
	} {
		if err := decodeStringList(field.raw, field.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", field.name, err)
		}
	}
	return user, nil
}

// LoadActivity returns every activity record for the user created at or after since
func (r *ActivityRepository) LoadActivity(ctx context.Context, userID string, since time.Time) (*models.Activity, error) {
	activity := &models.Activity{}

	err := r.each(ctx, `
		SELECT post_id, author_id, content_type, life_dimension, upvotes, downvotes, text_length, created_at
		FROM activity_posts WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at
	`, []any{userID, since}, func(rows *sql.Rows) error {
		var p models.PostRecord
		var contentType, dimension string
		if err := rows.Scan(&p.ID, &p.AuthorID, &contentType, &dimension, &p.Upvotes, &p.Downvotes, &p.TextLength, &p.CreatedAt); err != nil {
			return err
		}
		p.Type = models.ContentType(contentType)
		p.LifeDimension = models.LifeDimension(dimension)
		activity.Posts = append(activity.Posts, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	err = r.each(ctx, `
		SELECT route_id, creator_id, distance, duration, tags, safety_rating, completed, shared, created_at
		FROM activity_routes WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at
	`, []any{userID, since}, func(rows *sql.Rows) error {
		var rt models.RouteRecord
		var tags []byte
		var rating sql.NullFloat64
		if err := rows.Scan(&rt.ID, &rt.CreatorID, &rt.Distance, &rt.Duration, &tags, &rating, &rt.Completed, &rt.Shared, &rt.CreatedAt); err != nil {
			return err
		}
		if err := decodeStringList(tags, &rt.Tags); err != nil {
			return fmt.Errorf("failed to unmarshal route tags: %w", err)
		}
		if rating.Valid {
			v := rating.Float64
			rt.SafetyRating = &v
		}
		activity.Routes = append(activity.Routes, rt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}

	err = r.each(ctx, `
		SELECT id, post_id, target_author_id, created_at
		FROM activity_comments WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at
	`, []any{userID, since}, func(rows *sql.Rows) error {
		var c models.CommentRecord
		if err := rows.Scan(&c.ID, &c.PostID, &c.TargetAuthorID, &c.CreatedAt); err != nil {
			return err
		}
		activity.Comments = append(activity.Comments, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	err = r.each(ctx, `
		SELECT id, post_id, target_author_id, value, verification, created_at
		FROM activity_votes WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at
	`, []any{userID, since}, func(rows *sql.Rows) error {
		var v models.VoteRecord
		if err := rows.Scan(&v.ID, &v.PostID, &v.TargetAuthorID, &v.Value, &v.Verification, &v.CreatedAt); err != nil {
			return err
		}
		activity.Votes = append(activity.Votes, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}

	err = r.each(ctx, `
		SELECT id, kind, amount, category, created_at
		FROM activity_transactions WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at
	`, []any{userID, since}, func(rows *sql.Rows) error {
		var t models.TransactionRecord
		var kind string
		if err := rows.Scan(&t.ID, &kind, &t.Amount, &t.Category, &t.CreatedAt); err != nil {
			return err
		}
		t.Kind = models.TransactionKind(kind)
		activity.Transactions = append(activity.Transactions, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	err = r.each(ctx, `
		SELECT id, sender_id, recipient_id, created_at
		FROM activity_messages WHERE (sender_id = $1 OR recipient_id = $1) AND created_at >= $2 ORDER BY created_at
	`, []any{userID, since}, func(rows *sql.Rows) error {
		var m models.MessageRecord
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.CreatedAt); err != nil {
			return err
		}
		activity.Messages = append(activity.Messages, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return activity, nil
}

// ListActiveUsers returns ids of users active at or after since, ordered by id
func (r *ActivityRepository) ListActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := r.each(ctx, `
		SELECT id FROM activity_users WHERE last_active_at >= $1 ORDER BY id
	`, []any{since}, func(rows *sql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return ids, nil
}

func (r *ActivityRepository) each(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func decodeStringList(raw []byte, dest *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
