package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/demandradar/engine/internal/core/domain"
)

// ListSources returns all opportunity-to-post links.
func (db *DB) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx, `SELECT opportunity_id, post_id FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source

	for rows.Next() {
		var opportunityID, postID pgtype.UUID

		if err := rows.Scan(&opportunityID, &postID); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}

		sources = append(sources, domain.Source{
			OpportunityID: fromUUID(opportunityID),
			PostID:        fromUUID(postID),
		})
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate source rows: %w", rows.Err())
	}

	return sources, nil
}

// AddSource links an opportunity to a contributing post. Existing links
// are left untouched.
func (db *DB) AddSource(ctx context.Context, opportunityID, postID string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO sources (opportunity_id, post_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, toUUID(opportunityID), toUUID(postID)); err != nil {
		return fmt.Errorf("add source: %w", err)
	}

	return nil
}
