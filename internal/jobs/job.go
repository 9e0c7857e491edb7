// Package jobs follows renderer jobs from submission to a terminal state.
//
// A Poller runs a bounded fetch loop. A Tracker runs that loop in the
// background for every submitted job and answers status queries from a
// StatusStore, falling back to a live fetch when it has nothing fresh.
package jobs

import (
	"time"

	contracts "poststudio/internal/contracts/renderer/v1"
	"poststudio/internal/pkg/errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
	// StatusTimeout means polling gave up; the renderer may still finish.
	StatusTimeout Status = "timeout"
)

// Terminal reports whether no further renderer transitions are expected.
// Timeout is not terminal: a later status check may still see the job finish.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

var (
	ErrJobFailed = errors.New(errors.CodeJobFailed, "render job failed")
	ErrNotReady  = errors.New(errors.CodeNotReady, "render job not ready")
)

// Job is the locally known state of a renderer job. ResultURL is set only
// when Status is finished.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	ResultURL string    `json:"result_url,omitempty"`
	Attempts  int       `json:"attempts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromImage maps a renderer response onto a Job. A finished image without a
// URL is still pending.
func FromImage(id string, img contracts.Image) Job {
	j := Job{ID: id, Status: StatusPending, UpdatedAt: time.Now().UTC()}
	switch {
	case img.Ready():
		j.Status = StatusFinished
		j.ResultURL = img.ImageURL
	case img.Failed():
		j.Status = StatusError
	}
	return j
}
