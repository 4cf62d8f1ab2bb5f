package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/demandradar/engine/internal/core/domain"
)

// InsertOpportunity stores an analyzer result together with its source
// links in one transaction.
func (db *DB) InsertOpportunity(ctx context.Context, o domain.Opportunity, postIDs []string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert opportunity: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO opportunities (id, title, description, proposed_solution,
			score_speed, score_convenience, score_trust, score_price,
			overall_score, viable, business_type, vertical, niche, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, toUUID(o.ID), toText(o.Title), toText(o.Description), toText(o.ProposedSolution),
		o.Scores.Speed, o.Scores.Convenience, o.Scores.Trust, o.Scores.Price,
		o.OverallScore, o.Viable, string(o.BusinessType), string(o.Vertical),
		toText(o.Niche), toTimestamptz(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	for _, postID := range postIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sources (opportunity_id, post_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, toUUID(o.ID), toUUID(postID)); err != nil {
			return fmt.Errorf("insert source: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert opportunity: %w", err)
	}

	return nil
}

// ListOpportunities returns all opportunities.
func (db *DB) ListOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, description, proposed_solution,
		       score_speed, score_convenience, score_trust, score_price,
		       overall_score, viable, business_type, vertical, niche, created_at
		FROM opportunities
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []domain.Opportunity

	for rows.Next() {
		var (
			o            domain.Opportunity
			id           pgtype.UUID
			title        pgtype.Text
			description  pgtype.Text
			solution     pgtype.Text
			businessType string
			vertical     string
			niche        pgtype.Text
			createdAt    pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &title, &description, &solution,
			&o.Scores.Speed, &o.Scores.Convenience, &o.Scores.Trust, &o.Scores.Price,
			&o.OverallScore, &o.Viable, &businessType, &vertical, &niche, &createdAt); err != nil {
			return nil, fmt.Errorf("scan opportunity row: %w", err)
		}

		o.ID = fromUUID(id)
		o.Title = fromText(title)
		o.Description = fromText(description)
		o.ProposedSolution = fromText(solution)
		o.BusinessType = domain.ParseBusinessType(businessType)
		o.Vertical = domain.ParseVertical(vertical)
		o.Niche = fromText(niche)
		o.CreatedAt = fromTimestamptz(createdAt)

		opportunities = append(opportunities, o)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate opportunity rows: %w", rows.Err())
	}

	return opportunities, nil
}
