package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contracts "poststudio/internal/contracts/renderer/v1"
	"poststudio/internal/pkg/errors"
)

// scriptedRenderer replays a fixed sequence of images per job; the last entry
// repeats once the script runs out.
type scriptedRenderer struct {
	mu      sync.Mutex
	scripts map[string][]contracts.Image
	calls   map[string]int
	deleted []string
	fetches atomic.Int32
}

func newScripted() *scriptedRenderer {
	return &scriptedRenderer{scripts: map[string][]contracts.Image{}, calls: map[string]int{}}
}

func (r *scriptedRenderer) script(id string, statuses ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imgs := make([]contracts.Image, 0, len(statuses))
	for _, s := range statuses {
		img := contracts.Image{ID: contracts.ImageID(id), Status: s}
		if s == contracts.StatusFinished {
			img.ImageURL = "https://cdn.example/" + id + ".png"
		}
		imgs = append(imgs, img)
	}
	r.scripts[id] = imgs
}

func (r *scriptedRenderer) Fetch(_ context.Context, id string) (contracts.Image, error) {
	r.fetches.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scripts[id]
	if !ok || len(s) == 0 {
		return contracts.Image{}, errors.NotFound("image", id)
	}
	n := r.calls[id]
	r.calls[id] = n + 1
	if n >= len(s) {
		n = len(s) - 1
	}
	return s[n], nil
}

func (r *scriptedRenderer) Delete(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return true
}

func (r *scriptedRenderer) deletedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

func TestPollFinishesAfterPending(t *testing.T) {
	r := newScripted()
	r.script("1", "pending", "pending", "finished")

	p := &Poller{Fetcher: r, Interval: time.Millisecond, MaxAttempts: 3}
	job, err := p.Poll(context.Background(), "1")

	require.NoError(t, err)
	assert.Equal(t, StatusFinished, job.Status)
	assert.Equal(t, "https://cdn.example/1.png", job.ResultURL)
	assert.Equal(t, 3, job.Attempts)
}

func TestPollTimeoutIsDistinctFromFailure(t *testing.T) {
	r := newScripted()
	r.script("slow", "pending")
	r.script("bad", "pending", "error")

	p := &Poller{Fetcher: r, Interval: time.Millisecond, MaxAttempts: 4}

	job, err := p.Poll(context.Background(), "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.False(t, errors.Is(err, ErrJobFailed))
	assert.Equal(t, StatusTimeout, job.Status)
	assert.Empty(t, job.ResultURL)
	assert.Equal(t, 4, job.Attempts)

	job, err = p.Poll(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobFailed))
	assert.False(t, errors.Is(err, ErrNotReady))
	assert.Equal(t, StatusError, job.Status)
	assert.Equal(t, 2, job.Attempts)
}

func TestPollFinishedWithoutURLStaysPending(t *testing.T) {
	r := newScripted()
	r.scripts["x"] = []contracts.Image{{ID: "x", Status: contracts.StatusFinished}}

	p := &Poller{Fetcher: r, Interval: 0, MaxAttempts: 2}
	job, err := p.Poll(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, StatusTimeout, job.Status)
}

func TestPollCountsFetchErrorsAsAttempts(t *testing.T) {
	r := newScripted()

	p := &Poller{Fetcher: r, Interval: 0, MaxAttempts: 3}
	job, err := p.Poll(context.Background(), "unknown")

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 3, job.Attempts)
	assert.EqualValues(t, 3, r.fetches.Load())
}

func TestPollStopsOnCancel(t *testing.T) {
	r := newScripted()
	r.script("1", "pending")

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{Fetcher: r, Interval: time.Hour, MaxAttempts: 5}

	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(ctx, "1")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not stop after cancel")
	}
}

func TestTrackerRecordsFinishedJob(t *testing.T) {
	r := newScripted()
	r.script("7", "pending", "finished")

	tr := NewTracker(r, NewMemoryStore(time.Minute), TrackerOptions{Interval: time.Millisecond, MaxAttempts: 5})
	defer tr.Close(context.Background())

	job := tr.Track(context.Background(), contracts.Image{ID: "7", Status: contracts.StatusQueued})
	assert.Equal(t, StatusPending, job.Status)

	require.Eventually(t, func() bool {
		j, err := tr.Status(context.Background(), "7")
		return err == nil && j.Status == StatusFinished
	}, 2*time.Second, 5*time.Millisecond)

	j, err := tr.Status(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/7.png", j.ResultURL)
	assert.Empty(t, r.deletedIDs())
}

func TestTrackerImmediateResultIsNotPolled(t *testing.T) {
	r := newScripted()
	tr := NewTracker(r, NewMemoryStore(time.Minute), TrackerOptions{Interval: time.Millisecond, MaxAttempts: 5})
	defer tr.Close(context.Background())

	job := tr.Track(context.Background(), contracts.Image{ID: "9", Status: contracts.StatusFinished, ImageURL: "https://cdn/9.png"})

	assert.Equal(t, StatusFinished, job.Status)
	assert.Equal(t, 0, tr.Active())
	assert.EqualValues(t, 0, r.fetches.Load())
}

func TestTrackerCleansUpFailedJob(t *testing.T) {
	r := newScripted()
	r.script("5", "error")

	tr := NewTracker(r, NewMemoryStore(time.Minute), TrackerOptions{Interval: time.Millisecond, MaxAttempts: 5})
	defer tr.Close(context.Background())

	tr.Track(context.Background(), contracts.Image{ID: "5", Status: contracts.StatusPending})

	require.Eventually(t, func() bool { return len(r.deletedIDs()) == 1 }, 2*time.Second, 5*time.Millisecond)

	j, err := tr.Status(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, StatusError, j.Status)
}

func TestTrackerTimeoutIsRecoverable(t *testing.T) {
	r := newScripted()
	r.script("3", "pending", "pending", "finished")

	tr := NewTracker(r, NewMemoryStore(time.Minute), TrackerOptions{Interval: time.Millisecond, MaxAttempts: 1})
	defer tr.Close(context.Background())

	tr.Track(context.Background(), contracts.Image{ID: "3", Status: contracts.StatusPending})
	require.Eventually(t, func() bool { return tr.Active() == 0 }, 2*time.Second, 5*time.Millisecond)

	// the background poll gave up after one attempt; each status check now
	// asks the renderer directly
	j, err := tr.Status(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, j.Status)

	j, err = tr.Status(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, j.Status)
	assert.Empty(t, r.deletedIDs())
}

func TestTrackerUnknownJob(t *testing.T) {
	tr := NewTracker(newScripted(), NewMemoryStore(time.Minute), TrackerOptions{})
	defer tr.Close(context.Background())

	_, err := tr.Status(context.Background(), "nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestTrackerDiscard(t *testing.T) {
	r := newScripted()
	r.script("d", "pending")
	store := NewMemoryStore(time.Minute)

	tr := NewTracker(r, store, TrackerOptions{Interval: time.Hour, MaxAttempts: 5})
	defer tr.Close(context.Background())

	tr.Track(context.Background(), contracts.Image{ID: "d", Status: contracts.StatusPending})
	assert.True(t, tr.Discard(context.Background(), "d"))

	require.Eventually(t, func() bool { return tr.Active() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"d"}, r.deletedIDs())
	_, ok, _ := store.Get(context.Background(), "d")
	assert.False(t, ok)
}

func TestTrackerCloseStopsPolls(t *testing.T) {
	r := newScripted()
	r.script("a", "pending")

	tr := NewTracker(r, NewMemoryStore(time.Minute), TrackerOptions{Interval: time.Hour, MaxAttempts: 10})
	tr.Track(context.Background(), contracts.Image{ID: "a", Status: contracts.StatusPending})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Close(ctx))
	assert.Equal(t, 0, tr.Active())

	job := tr.Track(context.Background(), contracts.Image{ID: "b", Status: contracts.StatusPending})
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 0, tr.Active())
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(context.Background(), Job{ID: "1", Status: StatusPending}))
	_, ok, _ := s.Get(context.Background(), "1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = s.Get(context.Background(), "1")
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStore(rdb, "", time.Minute)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	want := Job{ID: "42", Status: StatusFinished, ResultURL: "https://cdn/42.png", Attempts: 2, UpdatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.Put(ctx, want))

	got, ok, err := s.Get(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.ResultURL, got.ResultURL)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, time.Minute, mr.TTL("poststudio:job:42"))

	require.NoError(t, s.Delete(ctx, "42"))
	_, ok, _ = s.Get(ctx, "42")
	assert.False(t, ok)
}
