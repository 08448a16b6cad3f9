package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type UsagePruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type LogPruner interface {
	DeleteCreatedBefore(ctx context.Context, before int64) (int64, error)
}

// Retention drops usage counters, notification logs and audit entries older
// than a fixed window.
type Retention struct {
	usage  UsagePruner
	logs   LogPruner
	audit  LogPruner
	window time.Duration
	now    func() time.Time
}

func NewRetention(usage UsagePruner, logs, audit LogPruner, days int) *Retention {
	if days <= 0 {
		days = 90
	}
	return &Retention{
		usage:  usage,
		logs:   logs,
		audit:  audit,
		window: time.Duration(days) * 24 * time.Hour,
		now:    time.Now,
	}
}

func (r *Retention) Run(ctx context.Context) error {
	cutoff := r.now().Add(-r.window)

	counters, err := r.usage.Prune(ctx, cutoff)
	if err != nil {
		return err
	}
	logs, err := r.logs.DeleteCreatedBefore(ctx, cutoff.Unix())
	if err != nil {
		return err
	}
	entries, err := r.audit.DeleteCreatedBefore(ctx, cutoff.Unix())
	if err != nil {
		return err
	}

	log.Info().
		Int64("usage_counters", counters).
		Int64("notification_logs", logs).
		Int64("audit_logs", entries).
		Time("cutoff", cutoff).
		Msg("retention pass complete")
	return nil
}

// Every runs job immediately and then on each tick until ctx is cancelled.
// A failing run is logged and retried on the next tick.
func Every(ctx context.Context, interval time.Duration, name string, job func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("worker", name).Msg("worker run failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Str("worker", name).Msg("worker stopped")
			return
		case <-ticker.C:
		}
	}
}
