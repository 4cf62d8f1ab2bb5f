package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/demandradar/engine/internal/core/domain"
	ierr "github.com/demandradar/engine/internal/core/errors"
)

const postColumns = `id, external_id, title, body, subreddit, author, score, num_comments, created_at, processed_at, processing_error`

// InsertPost stores a scraped post. Re-scrapes of the same external id
// are ignored rather than erroring; duplicate rows that slip in anyway
// are the deduplication engine's job.
func (db *DB) InsertPost(ctx context.Context, p domain.Post) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO posts (id, external_id, title, body, subreddit, author, score, num_comments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
	`, toUUID(p.ID), p.ExternalID, toText(p.Title), toText(p.Body), toText(p.Subreddit),
		toText(p.Author), p.Score, p.NumComments, toTimestamptz(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// ListPosts returns all posts.
func (db *DB) ListPosts(ctx context.Context) ([]domain.Post, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post

	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}

		posts = append(posts, p)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate post rows: %w", rows.Err())
	}

	return posts, nil
}

// GetPostByExternalID returns the post with the given external id.
func (db *DB) GetPostByExternalID(ctx context.Context, externalID string) (domain.Post, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE external_id = $1`, externalID)

	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, fmt.Errorf("%w: external id %s", ierr.ErrPostNotFound, externalID)
		}

		return domain.Post{}, err
	}

	return p, nil
}

// MarkPostProcessed records successful analysis of a post. The
// processing error is cleared: processed and failed are mutually
// exclusive terminal states.
func (db *DB) MarkPostProcessed(ctx context.Context, postID string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE posts SET processed_at = now(), processing_error = NULL WHERE id = $1
	`, toUUID(postID))
	if err != nil {
		return fmt.Errorf("mark post processed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ierr.ErrPostNotFound, postID)
	}

	return nil
}

// MarkPostFailed records a failed analysis. The processing timestamp is
// cleared for the same reason.
func (db *DB) MarkPostFailed(ctx context.Context, postID, reason string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE posts SET processing_error = $2, processed_at = NULL WHERE id = $1
	`, toUUID(postID), toText(reason))
	if err != nil {
		return fmt.Errorf("mark post failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ierr.ErrPostNotFound, postID)
	}

	return nil
}

func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		p           domain.Post
		id          pgtype.UUID
		title       pgtype.Text
		body        pgtype.Text
		subreddit   pgtype.Text
		author      pgtype.Text
		createdAt   pgtype.Timestamptz
		processedAt pgtype.Timestamptz
		procError   pgtype.Text
	)

	if err := row.Scan(&id, &p.ExternalID, &title, &body, &subreddit, &author,
		&p.Score, &p.NumComments, &createdAt, &processedAt, &procError); err != nil {
		return domain.Post{}, fmt.Errorf("scan post row: %w", err)
	}

	p.ID = fromUUID(id)
	p.Title = fromText(title)
	p.Body = fromText(body)
	p.Subreddit = fromText(subreddit)
	p.Author = fromText(author)
	p.CreatedAt = fromTimestamptz(createdAt)
	p.ProcessedAt = fromTimestamptzPtr(processedAt)
	p.ProcessingError = fromText(procError)

	return p, nil
}
