package jobs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	contracts "poststudio/internal/contracts/renderer/v1"
	"poststudio/internal/pkg/logger"
)

// Renderer is the subset of the renderer client the tracker needs.
type Renderer interface {
	Fetcher
	Delete(ctx context.Context, id string) bool
}

type TrackerOptions struct {
	Interval    time.Duration
	MaxAttempts int
	Log         *logger.Logger
}

// Tracker polls submitted jobs in the background so the submit path never
// waits on the renderer. Status is the only way callers observe progress.
type Tracker struct {
	renderer Renderer
	store    StatusStore
	poller   *Poller
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]*poll

	live singleflight.Group
}

type poll struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTracker(r Renderer, store StatusStore, opts TrackerOptions) *Tracker {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("tracker")

	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		renderer: r,
		store:    store,
		poller: &Poller{
			Fetcher:     r,
			Interval:    opts.Interval,
			MaxAttempts: opts.MaxAttempts,
			Log:         log,
		},
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]*poll),
	}
}

// Track records a freshly submitted image and, unless it is already
// terminal, starts polling it in the background.
func (t *Tracker) Track(ctx context.Context, img contracts.Image) Job {
	id := img.ID.String()
	job := FromImage(id, img)
	log := t.log.FromContext(ctx).WithJobID(id)

	t.put(ctx, job)
	if job.Status.Terminal() {
		if job.Status == StatusError {
			t.cleanup(ctx, id)
		}
		return job
	}

	t.mu.Lock()
	if _, running := t.active[id]; running || t.ctx.Err() != nil {
		t.mu.Unlock()
		return job
	}
	pollCtx, cancel := context.WithCancel(t.ctx)
	if rid, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		pollCtx = logger.ContextWithRequestID(pollCtx, rid)
	}
	pollCtx = logger.ContextWithJobID(pollCtx, id)
	p := &poll{cancel: cancel, done: make(chan struct{})}
	t.active[id] = p
	t.wg.Add(1)
	t.mu.Unlock()

	log.Info("tracking job")
	go t.run(pollCtx, id, p)
	return job
}

func (t *Tracker) run(ctx context.Context, id string, p *poll) {
	defer t.wg.Done()
	defer t.release(id, p)

	start := time.Now()
	job, err := t.poller.poll(ctx, id, func(j Job) { t.put(ctx, j) })
	log := t.log.FromContext(ctx)

	switch {
	case ctx.Err() != nil:
		log.Info("tracking stopped", "attempts", job.Attempts)
	case err == nil:
		log.Info("job finished", "attempts", job.Attempts, "duration_ms", time.Since(start).Milliseconds())
	case job.Status == StatusError:
		log.Warn("job failed", "attempts", job.Attempts)
		t.cleanup(ctx, id)
	default:
		log.Warn("job still pending after polling budget", "attempts", job.Attempts, "duration_ms", time.Since(start).Milliseconds())
	}
}

// Status returns the job state. Jobs that are unknown, timed out or no longer
// polled by this process are re-read from the renderer, so a caller that saw
// a timeout can keep asking.
func (t *Tracker) Status(ctx context.Context, id string) (Job, error) {
	job, ok, err := t.store.Get(ctx, id)
	if err != nil {
		t.log.FromContext(ctx).Warn("status store read failed", "job_id", id, "error", err.Error())
	}
	if ok && (job.Status.Terminal() || t.isActive(id)) {
		return job, nil
	}

	v, err, _ := t.live.Do(id, func() (any, error) {
		img, err := t.renderer.Fetch(ctx, id)
		if err != nil {
			return Job{}, err
		}
		j := FromImage(id, img)
		if ok {
			j.Attempts = job.Attempts
		}
		t.put(ctx, j)
		return j, nil
	})
	if err != nil {
		return Job{}, err
	}
	return v.(Job), nil
}

// Discard stops tracking id, forgets its state and asks the renderer to
// delete it. The renderer answer is returned.
func (t *Tracker) Discard(ctx context.Context, id string) bool {
	t.mu.Lock()
	p, ok := t.active[id]
	t.mu.Unlock()
	if ok {
		p.cancel()
		select {
		case <-p.done:
		case <-ctx.Done():
		}
	}

	if err := t.store.Delete(ctx, id); err != nil {
		t.log.FromContext(ctx).Warn("status store delete failed", "job_id", id, "error", err.Error())
	}
	return t.renderer.Delete(ctx, id)
}

// Close stops all background polls and waits for them to return.
func (t *Tracker) Close(ctx context.Context) error {
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the number of jobs being polled.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

func (t *Tracker) isActive(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[id]
	return ok
}

func (t *Tracker) release(id string, p *poll) {
	t.mu.Lock()
	if t.active[id] == p {
		delete(t.active, id)
	}
	t.mu.Unlock()
	p.cancel()
	close(p.done)
}

func (t *Tracker) put(ctx context.Context, job Job) {
	if err := t.store.Put(ctx, job); err != nil {
		t.log.FromContext(logger.ContextWithJobID(ctx, job.ID)).Warn("status store write failed", "error", err.Error())
	}
}

// cleanup is best-effort; a failed delete only leaves a stale renderer entry.
func (t *Tracker) cleanup(ctx context.Context, id string) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if !t.renderer.Delete(ctx, id) {
		t.log.FromContext(logger.ContextWithJobID(ctx, id)).Warn("renderer cleanup failed")
	}
}
