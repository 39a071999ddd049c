package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/adcraft/internal/domain/model"
)

func setupRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, WithKeyPrefix("test:job:"))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedis(t)

	require.NoError(t, s.Create(ctx, newJob("a", t0)))
	assert.ErrorIs(t, s.Create(ctx, newJob("a", t0)), ErrExists)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "c-1", got.CampaignID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, got.CreatedAt.Equal(t0))

	assert.True(t, mr.Exists("test:job:a"))
	members, err := mr.Members("test:job:status:pending")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_UpdateMovesStatusIndex(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedis(t)
	require.NoError(t, s.Create(ctx, newJob("a", t0)))

	got, err := s.Update(ctx, "a", func(j *model.CreativeJob) error {
		return j.MarkProcessing(t0.Add(time.Second))
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)

	assert.Empty(t, mustMembers(t, mr, "test:job:status:pending"))
	assert.Equal(t, []string{"a"}, mustMembers(t, mr, "test:job:status:processing"))

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[model.StatusPending])
	assert.Equal(t, 1, counts[model.StatusProcessing])

	list, err := s.ListByStatus(ctx, model.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func TestRedisStore_UpdateErrorAborts(t *testing.T) {
	ctx := context.Background()
	s, _ := setupRedis(t)
	require.NoError(t, s.Create(ctx, newJob("a", t0)))

	boom := errors.New("boom")
	_, err := s.Update(ctx, "a", func(j *model.CreativeJob) error {
		j.Paused = true
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, got.Paused)

	_, err = s.Update(ctx, "missing", func(*model.CreativeJob) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedis(t)
	require.NoError(t, s.Create(ctx, newJob("a", t0)))

	require.NoError(t, s.Delete(ctx, "a"))
	assert.False(t, mr.Exists("test:job:a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)

	list, err := s.ListByStatus(ctx, model.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisStore_ConcurrentCreateIndexesOnce(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedis(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(ctx, newJob("a", t0))
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrExists)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, []string{"a"}, mustMembers(t, mr, "test:job:status:pending"))
}

func TestRedisStore_DeleteRacingUpdateLeavesNoStaleIndex(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedis(t)

	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, s.Create(ctx, newJob(fmt.Sprintf("j-%d", i), t0)))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("j-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, id, func(j *model.CreativeJob) error {
				return j.MarkProcessing(t0.Add(time.Second))
			})
		}()
		go func() {
			defer wg.Done()
			_ = s.Delete(ctx, id)
		}()
	}
	wg.Wait()

	live := 0
	for i := 0; i < n; i++ {
		if mr.Exists(fmt.Sprintf("test:job:j-%d", i)) {
			live++
		}
	}
	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	indexed := 0
	for _, c := range counts {
		indexed += c
	}
	assert.Equal(t, live, indexed)
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	assert.Equal(t, "redis", s.Name())
	require.NoError(t, s.Close())

	_, err = OpenRedis(context.Background(), "http://not-redis")
	assert.Error(t, err)
}

func mustMembers(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	if !mr.Exists(key) {
		return nil
	}
	m, err := mr.Members(key)
	require.NoError(t, err)
	return m
}
