package db

import (
	"context"
	"fmt"
)

// MergePosts collapses a duplicate post group onto its canonical post.
// The whole group is one transaction: source links are re-pointed to
// the canonical post before the duplicates are deleted, so a failure
// mid-group leaves either the pre-merge or the fully-merged state,
// never dangling sources.
func (db *DB) MergePosts(ctx context.Context, canonicalID string, duplicateIDs []string) error {
	if len(duplicateIDs) == 0 {
		return nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge posts: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Drop links that would collide after the repoint: either with an
	// existing canonical link, or with another duplicate's link to the
	// same opportunity (the lowest duplicate id survives).
	if _, err := tx.Exec(ctx, `
		DELETE FROM sources s
		USING sources c
		WHERE s.post_id = ANY($2)
		  AND s.opportunity_id = c.opportunity_id
		  AND (c.post_id = $1 OR (c.post_id = ANY($2) AND c.post_id < s.post_id))
	`, toUUID(canonicalID), toUUIDs(duplicateIDs)); err != nil {
		return fmt.Errorf("drop colliding sources: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sources SET post_id = $1 WHERE post_id = ANY($2)
	`, toUUID(canonicalID), toUUIDs(duplicateIDs)); err != nil {
		return fmt.Errorf("repoint sources: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM posts WHERE id = ANY($1)
	`, toUUIDs(duplicateIDs)); err != nil {
		return fmt.Errorf("delete duplicate posts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge posts: %w", err)
	}

	return nil
}

// MergeOpportunities collapses a duplicate opportunity group onto its
// canonical opportunity with the same repoint-before-delete ordering as
// MergePosts.
func (db *DB) MergeOpportunities(ctx context.Context, canonicalID string, duplicateIDs []string) error {
	if len(duplicateIDs) == 0 {
		return nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge opportunities: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		DELETE FROM sources s
		USING sources c
		WHERE s.opportunity_id = ANY($2)
		  AND s.post_id = c.post_id
		  AND (c.opportunity_id = $1 OR (c.opportunity_id = ANY($2) AND c.opportunity_id < s.opportunity_id))
	`, toUUID(canonicalID), toUUIDs(duplicateIDs)); err != nil {
		return fmt.Errorf("drop colliding sources: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sources SET opportunity_id = $1 WHERE opportunity_id = ANY($2)
	`, toUUID(canonicalID), toUUIDs(duplicateIDs)); err != nil {
		return fmt.Errorf("repoint sources: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM opportunities WHERE id = ANY($1)
	`, toUUIDs(duplicateIDs)); err != nil {
		return fmt.Errorf("delete duplicate opportunities: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge opportunities: %w", err)
	}

	return nil
}
