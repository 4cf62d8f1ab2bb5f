package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/demandradar/engine/internal/core/domain"
)

// IncrementDailyUsage folds one usage event into the rollup row for the
// given calendar date. The upsert is a single atomic statement, so
// concurrent writers for the same date cannot lose updates and events
// arriving out of order fold commutatively.
func (db *DB) IncrementDailyUsage(ctx context.Context, day time.Time, promptTokens, completionTokens int, costUSD float64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO daily_usage (date, prompt_tokens, completion_tokens, request_count, cost_usd)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (date)
		DO UPDATE SET
			prompt_tokens = daily_usage.prompt_tokens + EXCLUDED.prompt_tokens,
			completion_tokens = daily_usage.completion_tokens + EXCLUDED.completion_tokens,
			request_count = daily_usage.request_count + 1,
			cost_usd = daily_usage.cost_usd + EXCLUDED.cost_usd,
			updated_at = now()
	`, day.Format(time.DateOnly), promptTokens, completionTokens, costUSD)
	if err != nil {
		return fmt.Errorf("increment daily usage: %w", err)
	}

	return nil
}

// GetDailyUsageRange returns the rollup rows with dates in [from, to].
// Absent dates are simply absent; the usage tracker zero-fills them.
func (db *DB) GetDailyUsageRange(ctx context.Context, from, to time.Time) ([]domain.DailyUsage, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT date, prompt_tokens, completion_tokens, request_count, cost_usd
		FROM daily_usage
		WHERE date >= $1 AND date <= $2
		ORDER BY date
	`, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("get daily usage range: %w", err)
	}
	defer rows.Close()

	var usages []domain.DailyUsage

	for rows.Next() {
		var (
			u    domain.DailyUsage
			date pgtype.Date
		)

		if err := rows.Scan(&date, &u.PromptTokens, &u.CompletionTokens, &u.RequestCount, &u.CostUSD); err != nil {
			return nil, fmt.Errorf("scan daily usage row: %w", err)
		}

		u.Date = date.Time.UTC()

		usages = append(usages, u)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate daily usage rows: %w", rows.Err())
	}

	return usages, nil
}
