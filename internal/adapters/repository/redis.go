package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/metrics"
)

const (
	backendRedis      = "redis"
	defaultKeyPrefix  = "adcraft:job:"
	defaultMaxRetries = 8
)

// RedisStore keeps each job as a JSON string and indexes ids per status in sets.
// Update uses WATCH/MULTI so concurrent writers to one job are serialized
// across processes.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultKeyPrefix, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRedis parses a redis:// URL, connects and pings.
func OpenRedis(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, opts...), nil
}

// Name implements Store.
func (s *RedisStore) Name() string { return backendRedis }

func (s *RedisStore) jobKey(id string) string { return s.prefix + id }

func (s *RedisStore) statusKey(st model.JobStatus) string { return s.prefix + "status:" + string(st) }

// Create implements Store. The existence check and the index write happen in
// one transaction.
func (s *RedisStore) Create(ctx context.Context, job *model.CreativeJob) error {
	if job == nil || job.ID == "" {
		return ErrInvalidJob
	}
	start := time.Now()
	defer observe(backendRedis, "create", start)

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	key := s.jobKey(job.ID)
	return s.watch(ctx, job.ID, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("create job %s: %w", job.ID, err)
		}
		if n > 0 {
			return ErrExists
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			p.SAdd(ctx, s.statusKey(job.Status), job.ID)
			return nil
		})
		return err
	})
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendRedis, "get", start)
	return s.load(ctx, s.client, id)
}

func (s *RedisStore) load(ctx context.Context, c redis.Cmdable, id string) (*model.CreativeJob, error) {
	raw, err := c.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	var j model.CreativeJob
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendRedis, "update", start)

	key := s.jobKey(id)
	var out *model.CreativeJob
	txf := func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		next := cur.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID = id
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			if cur.Status != next.Status {
				p.SRem(ctx, s.statusKey(cur.Status), id)
				p.SAdd(ctx, s.statusKey(next.Status), id)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = next
		return nil
	}

	if err := s.watch(ctx, id, txf); err != nil {
		return nil, err
	}
	return out, nil
}

// watch runs txf under WATCH on the job key, retrying when another client
// wrote the key first.
func (s *RedisStore) watch(ctx context.Context, id string, txf func(*redis.Tx) error) error {
	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, txf, s.jobKey(id))
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	metrics.RecordStoreConflict(backendRedis)
	return fmt.Errorf("%w: %s", ErrConflict, id)
}

// Delete implements Store. The job is read under WATCH so the id leaves the
// status set it is in at the moment of deletion.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer observe(backendRedis, "delete", start)

	return s.watch(ctx, id, func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, s.jobKey(id))
			p.SRem(ctx, s.statusKey(cur.Status), id)
			return nil
		})
		if err != nil {
			return fmt.Errorf("delete job %s: %w", id, err)
		}
		return nil
	})
}

// ListByStatus implements Store. Ids whose job key vanished are skipped.
func (s *RedisStore) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendRedis, "list", start)

	ids, err := s.client.SMembers(ctx, s.statusKey(status)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", status, err)
	}
	out := make([]*model.CreativeJob, 0, len(ids))
	for _, id := range ids {
		j, err := s.load(ctx, s.client, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if j.Status == status {
			out = append(out, j)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// CountByStatus implements Store.
func (s *RedisStore) CountByStatus(ctx context.Context) (map[model.JobStatus]int, error) {
	counts := make(map[model.JobStatus]int, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		n, err := s.client.SCard(ctx, s.statusKey(st)).Result()
		if err != nil {
			return nil, fmt.Errorf("count %s jobs: %w", st, err)
		}
		counts[st] = int(n)
	}
	return counts, nil
}

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }
