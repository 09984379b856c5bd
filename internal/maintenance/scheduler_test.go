package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls atomic.Int32
	last  atomic.Value
	err   error
}

func (f *fakeExpirer) ExpireCards(_ context.Context, now time.Time) (int64, error) {
	f.calls.Add(1)
	f.last.Store(now)
	return 3, f.err
}

func TestRunNowPassesSchedulerClock(t *testing.T) {
	t.Parallel()

	log, capture := logger.NewCapture()
	s := NewScheduler(log)
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.timeFunc = func() time.Time { return fixed }

	expirer := &fakeExpirer{}
	s.RunNow(NewExpirySweep(expirer))

	assert.Equal(t, int32(1), expirer.calls.Load())
	assert.Equal(t, fixed, expirer.last.Load())
	assert.True(t, capture.Contains("cards expired"))
	assert.True(t, capture.Contains("card_expiry_sweep"))
}

func TestRunNowLogsFailures(t *testing.T) {
	t.Parallel()

	log, capture := logger.NewCapture()
	s := NewScheduler(log)
	s.RunNow(NewExpirySweep(&fakeExpirer{err: errors.New("store down")}))
	s.RunNow(NewTokenPurge(nil))

	assert.True(t, capture.Contains("job failed"))
	assert.True(t, capture.Contains("store down"))
	assert.True(t, capture.Contains("no token store"))
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	assert.Error(t, s.Register("every now and then", NewExpirySweep(&fakeExpirer{})))
	assert.Error(t, s.Register("@hourly", nil))
	assert.NoError(t, s.Register("*/5 * * * *", NewExpirySweep(&fakeExpirer{})))
}

func TestScheduledJobFires(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	expirer := &fakeExpirer{}
	require.NoError(t, s.Register("@every 1s", NewExpirySweep(expirer)))

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool { return expirer.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := expirer.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, expirer.calls.Load(), "no triggers after Stop")
}

func TestSetup(t *testing.T) {
	t.Parallel()

	s, err := Setup(config.MaintenanceConfig{Enabled: false}, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Setup(config.MaintenanceConfig{
		Enabled:         true,
		ExpirySweepCron: "not a schedule",
		TokenPurgeCron:  "@daily",
	}, &fakeExpirer{}, memory.New(nil).Tokens(), nil)
	assert.Error(t, err)

	s, err = Setup(config.MaintenanceConfig{
		Enabled:         true,
		ExpirySweepCron: "@hourly",
		TokenPurgeCron:  "@daily",
	}, &fakeExpirer{}, memory.New(nil).Tokens(), nil)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestTokenPurgeRemovesExpiredRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tokens := memory.New(nil).Tokens()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	dead, err := domain.NewRefreshToken("dead-token", now.Add(-time.Minute), now.Add(-time.Hour))
	require.NoError(t, err)
	live, err := domain.NewRefreshToken("live-token", now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, tokens.Save(ctx, dead))
	require.NoError(t, tokens.Save(ctx, live))

	require.NoError(t, NewTokenPurge(tokens).Run(ctx, now))

	exists, err := tokens.ExistsByToken(ctx, "dead-token")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = tokens.ExistsByToken(ctx, "live-token")
	require.NoError(t, err)
	assert.True(t, exists)
}
