package jobs

import (
	"context"
	"time"

	contracts "poststudio/internal/contracts/renderer/v1"
	"poststudio/internal/pkg/logger"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// Fetcher reads the current state of a renderer job.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (contracts.Image, error)
}

type Poller struct {
	Fetcher     Fetcher
	Interval    time.Duration
	MaxAttempts int
	Log         *logger.Logger
}

// Poll fetches the job until it finishes, fails or the attempt budget runs
// out. It returns ErrJobFailed on a renderer error status and ErrNotReady on
// exhaustion. Fetch errors use up an attempt.
func (p *Poller) Poll(ctx context.Context, id string) (Job, error) {
	return p.poll(ctx, id, nil)
}

func (p *Poller) poll(ctx context.Context, id string, observe func(Job)) (Job, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	interval := p.Interval
	if interval < 0 {
		interval = DefaultInterval
	}
	log := p.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.FromContext(logger.ContextWithJobID(ctx, id))

	job := Job{ID: id, Status: StatusPending}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		img, err := p.Fetcher.Fetch(ctx, id)
		if ctx.Err() != nil {
			return job, ctx.Err()
		}
		if err != nil {
			log.Warn("poll fetch failed", "attempt", attempt, "error", err.Error())
			job.Attempts = attempt
			job.UpdatedAt = time.Now().UTC()
		} else {
			job = FromImage(id, img)
			job.Attempts = attempt
		}

		if observe != nil {
			observe(job)
		}

		switch job.Status {
		case StatusFinished:
			log.Debug("job finished", "attempts", attempt)
			return job, nil
		case StatusError:
			log.Warn("job failed on renderer", "attempts", attempt)
			return job, ErrJobFailed
		}

		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return job, ctx.Err()
		case <-timer.C:
		}
	}

	job.Status = StatusTimeout
	job.UpdatedAt = time.Now().UTC()
	if observe != nil {
		observe(job)
	}
	log.Warn("job not ready after polling", "attempts", job.Attempts)
	return job, ErrNotReady
}
