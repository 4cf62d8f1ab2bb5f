// Package usage folds per-call AI usage events into daily rollups.
//
// Recording is a single atomic upsert-increment keyed by calendar date,
// never a read-modify-write round trip, so concurrent writers for the
// same date cannot lose updates and events may arrive in any order.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/demandradar/engine/internal/core/domain"
	ierr "github.com/demandradar/engine/internal/core/errors"
)

// Repository is the persistence contract for daily rollups.
// IncrementDailyUsage must be atomic per (date) key.
type Repository interface {
	IncrementDailyUsage(ctx context.Context, day time.Time, promptTokens, completionTokens int, costUSD float64) error
	GetDailyUsageRange(ctx context.Context, from, to time.Time) ([]domain.DailyUsage, error)
}

// Totals sums a range of daily rollups.
type Totals struct {
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	RequestCount     int64   `json:"requestCount"`
	CostUSD          float64 `json:"costUsd"`
}

// Stats is the per-day and summed view of a date range. Days with no
// recorded events appear as zero-valued entries, not gaps.
type Stats struct {
	Days   []domain.DailyUsage `json:"days"`
	Totals Totals              `json:"totals"`
}

// Tracker records usage events and reads rollups.
type Tracker struct {
	database Repository
	logger   *zerolog.Logger
}

// New creates a usage tracker.
func New(database Repository, logger *zerolog.Logger) *Tracker {
	return &Tracker{database: database, logger: logger}
}

// RecordUsage folds one event into the rollup for its UTC calendar date,
// creating the row if absent.
func (t *Tracker) RecordUsage(ctx context.Context, event domain.UsageEvent) error {
	if event.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ierr.ErrInvalidUsageEvent)
	}

	if event.PromptTokens < 0 || event.CompletionTokens < 0 || event.CostUSD < 0 {
		return fmt.Errorf("%w: negative deltas", ierr.ErrInvalidUsageEvent)
	}

	if err := t.database.IncrementDailyUsage(ctx, event.Date(), event.PromptTokens, event.CompletionTokens, event.CostUSD); err != nil {
		return fmt.Errorf("increment daily usage: %w", err)
	}

	t.logger.Debug().
		Str("model", event.Model).
		Int("prompt_tokens", event.PromptTokens).
		Int("completion_tokens", event.CompletionTokens).
		Float64("cost_usd", event.CostUSD).
		Msg("usage recorded")

	return nil
}

// GetStats returns per-day rollups and summed totals for [from, to],
// inclusive on both ends.
func (t *Tracker) GetStats(ctx context.Context, from, to time.Time) (Stats, error) {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)

	if to.Before(from) {
		return Stats{}, fmt.Errorf("%w: %s before %s", ierr.ErrInvalidRange, to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	rows, err := t.database.GetDailyUsageRange(ctx, from, to)
	if err != nil {
		return Stats{}, fmt.Errorf("get daily usage range: %w", err)
	}

	byDate := make(map[time.Time]domain.DailyUsage, len(rows))
	for _, r := range rows {
		byDate[r.Date.UTC().Truncate(24*time.Hour)] = r
	}

	var stats Stats

	for day := from; !day.After(to); day = day.Add(24 * time.Hour) {
		row, ok := byDate[day]
		if !ok {
			row = domain.DailyUsage{Date: day}
		}

		stats.Days = append(stats.Days, row)
		stats.Totals.PromptTokens += row.PromptTokens
		stats.Totals.CompletionTokens += row.CompletionTokens
		stats.Totals.RequestCount += row.RequestCount
		stats.Totals.CostUSD += row.CostUSD
	}

	return stats, nil
}
