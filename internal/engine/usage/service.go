package usage

import (
	"context"
	"time"

	"hookflo/internal/platform/config"
)

const (
	PeriodDay   = "day"
	PeriodMonth = "month"
)

type Store interface {
	Increment(ctx context.Context, userID, period, periodKey string) error
	Get(ctx context.Context, userID, period, periodKey string) (int, error)
	DeletePeriodsBefore(ctx context.Context, dayKey, monthKey string) (int64, error)
}

type Usage struct {
	Daily        int `json:"daily"`
	Monthly      int `json:"monthly"`
	DailyLimit   int `json:"daily_limit"`
	MonthlyLimit int `json:"monthly_limit"`
}

// Service counts verified deliveries per user per UTC day and month.
// A zero limit means unlimited.
type Service struct {
	store  Store
	limits config.UsageConfig
	now    func() time.Time
}

func NewService(store Store, limits config.UsageConfig) *Service {
	return &Service{store: store, limits: limits, now: time.Now}
}

func periodKeys(t time.Time) (day, month string) {
	t = t.UTC()
	return t.Format("2006-01-02"), t.Format("2006-01")
}

func (s *Service) Snapshot(ctx context.Context, userID string) (Usage, error) {
	day, month := periodKeys(s.now())

	daily, err := s.store.Get(ctx, userID, PeriodDay, day)
	if err != nil {
		return Usage{}, err
	}
	monthly, err := s.store.Get(ctx, userID, PeriodMonth, month)
	if err != nil {
		return Usage{}, err
	}

	return Usage{
		Daily:        daily,
		Monthly:      monthly,
		DailyLimit:   s.limits.DailyLimit,
		MonthlyLimit: s.limits.MonthlyLimit,
	}, nil
}

// Allow reports whether the user may receive another delivery in the current periods.
func (s *Service) Allow(ctx context.Context, userID string) (bool, error) {
	if s.limits.DailyLimit <= 0 && s.limits.MonthlyLimit <= 0 {
		return true, nil
	}

	u, err := s.Snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.DailyLimit > 0 && u.Daily >= u.DailyLimit {
		return false, nil
	}
	if u.MonthlyLimit > 0 && u.Monthly >= u.MonthlyLimit {
		return false, nil
	}
	return true, nil
}

func (s *Service) Record(ctx context.Context, userID string) error {
	day, month := periodKeys(s.now())
	if err := s.store.Increment(ctx, userID, PeriodDay, day); err != nil {
		return err
	}
	return s.store.Increment(ctx, userID, PeriodMonth, month)
}

// Prune drops counters for days and months that ended before the one holding
// before. The current day and month are always kept, however late before is.
func (s *Service) Prune(ctx context.Context, before time.Time) (int64, error) {
	if now := s.now(); before.After(now) {
		before = now
	}
	day, month := periodKeys(before)
	return s.store.DeletePeriodsBefore(ctx, day, month)
}
