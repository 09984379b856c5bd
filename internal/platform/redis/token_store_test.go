package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewTokenStore(rdb, "test", nil), mr
}

func TestSaveAndFind(t *testing.T) {
	t.Parallel()
	s, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	rec, err := domain.NewRefreshToken("refresh-token-value", now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, rec))
	assert.ErrorIs(t, s.Save(ctx, rec), store.ErrTokenExists)

	got, err := s.FindByToken(ctx, "refresh-token-value")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "refresh-token-value", got.Token)
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "refresh-token-value")
	}
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(s.key("refresh-token-value")).Seconds(), 5)

	exists, err := s.ExistsByToken(ctx, "refresh-token-value")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.FindByToken(ctx, "unknown")
	assert.ErrorIs(t, err, store.ErrRefreshTokenNotFound)
}

func TestRecordsExpireWithTTL(t *testing.T) {
	t.Parallel()
	s, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec, err := domain.NewRefreshToken("short-lived", now.Add(2*time.Second), now)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, rec))

	mr.FastForward(3 * time.Second)

	exists, err := s.ExistsByToken(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := s.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteByTokenHasSingleWinner(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec, err := domain.NewRefreshToken("contended", now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, rec))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.DeleteByToken(ctx, "contended")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestUnavailableServer(t *testing.T) {
	t.Parallel()
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.ExistsByToken(context.Background(), "any")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrUnavailable)
	assert.Same(t, s, s.WithTx(nil))
}
