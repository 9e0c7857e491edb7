package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusStore keeps the last known state of tracked jobs.
type StatusStore interface {
	Put(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, bool, error)
	Delete(ctx context.Context, id string) error
}

const DefaultStatusTTL = 24 * time.Hour

type memoryEntry struct {
	job     Job
	expires time.Time
}

// MemoryStore is a process-local StatusStore. Expired entries are dropped on
// read and on write.
type MemoryStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	jobs map[string]memoryEntry
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &MemoryStore{ttl: ttl, jobs: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.jobs {
		if now.After(e.expires) {
			delete(s.jobs, id)
		}
	}
	s.jobs[job.ID] = memoryEntry{job: job, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, bool, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expires) {
		return Job{}, false, nil
	}
	return e.job, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	return nil
}

// RedisStore shares job state between server instances.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "poststudio:job:"
	}
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, job Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+job.ID, b, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (Job, bool, error) {
	b, err := s.rdb.Get(ctx, s.prefix+id).Bytes()
	if err == redis.Nil {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	var job Job
	if err := json.Unmarshal(b, &job); err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.prefix+id).Err()
}

var (
	_ StatusStore = (*MemoryStore)(nil)
	_ StatusStore = (*RedisStore)(nil)
)
