package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	usageBefore time.Time
	logsBefore  int64
	err         error
}

func (f *fakePruner) Prune(ctx context.Context, before time.Time) (int64, error) {
	f.usageBefore = before
	return 3, f.err
}

func (f *fakePruner) DeleteCreatedBefore(ctx context.Context, before int64) (int64, error) {
	f.logsBefore = before
	return 7, nil
}

type fakeAuditPruner struct {
	before int64
}

func (f *fakeAuditPruner) DeleteCreatedBefore(ctx context.Context, before int64) (int64, error) {
	f.before = before
	return 2, nil
}

func TestRetentionCutoff(t *testing.T) {
	p := &fakePruner{}
	a := &fakeAuditPruner{}
	r := NewRetention(p, p, a, 30)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Run(context.Background()))
	want := now.AddDate(0, 0, -30)
	assert.True(t, want.Equal(p.usageBefore))
	assert.Equal(t, want.Unix(), p.logsBefore)
	assert.Equal(t, want.Unix(), a.before)
}

func TestRetentionStopsOnError(t *testing.T) {
	p := &fakePruner{err: errors.New("locked")}
	a := &fakeAuditPruner{}
	err := NewRetention(p, p, a, 0).Run(context.Background())
	assert.Error(t, err)
	assert.Zero(t, p.logsBefore)
	assert.Zero(t, a.before)
}

func TestEveryRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	done := make(chan struct{})
	go func() {
		Every(ctx, 5*time.Millisecond, "test", func(context.Context) error {
			if runs.Add(1) >= 3 {
				cancel()
			}
			return errors.New("ignored")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}
