package repositories

import (
	"context"
	"database/sql"
	"time"
)

type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Increment bumps the counter for (user, period, key) in a single statement.
func (r *UsageRepository) Increment(ctx context.Context, userID, period, periodKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_counters (user_id, period, period_key, count, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(user_id, period, period_key) DO UPDATE SET count = count + 1, updated_at = excluded.updated_at
	`, userID, period, periodKey, time.Now().Unix())
	return err
}

func (r *UsageRepository) Get(ctx context.Context, userID, period, periodKey string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT count FROM usage_counters WHERE user_id = ? AND period = ? AND period_key = ?
	`, userID, period, periodKey).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// DeletePeriodsBefore removes day counters keyed before dayKey and month
// counters keyed before monthKey. Keys are zero-padded dates, so they order as text.
func (r *UsageRepository) DeletePeriodsBefore(ctx context.Context, dayKey, monthKey string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM usage_counters
		WHERE (period = 'day' AND period_key < ?) OR (period = 'month' AND period_key < ?)
	`, dayKey, monthKey)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
