// Package queue holds the inbox jobs waiting to be documented and persists them
// as JSON so a restart resumes where it stopped.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/clobrano/youtubedoc/internal/models"
)

// ErrDuplicate is returned by Enqueue when an unfinished job already exists for the same file.
var ErrDuplicate = errors.New("job already queued")

type Queue struct {
	mu           sync.Mutex
	jobs         []*models.Job
	persistPath  string
	notification chan struct{}
}

// New loads the queue from persistPath. Jobs that were processing when the
// previous run stopped are put back to pending.
func New(persistPath string) (*Queue, error) {
	q := &Queue{
		jobs:         make([]*models.Job, 0),
		persistPath:  persistPath,
		notification: make(chan struct{}, 1),
	}

	if err := q.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	for _, job := range q.jobs {
		if job.Status == models.JobStatusProcessing {
			job.Status = models.JobStatusPending
		}
	}
	if q.pendingLocked() > 0 {
		q.Notify()
	}

	return q, nil
}

func (q *Queue) Enqueue(job *models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job.FilePath != "" {
		for _, j := range q.jobs {
			if j.FilePath == job.FilePath && j.Status != models.JobStatusFailed {
				return ErrDuplicate
			}
		}
	}

	stored := *job
	q.jobs = append(q.jobs, &stored)
	q.Notify()

	return q.persist()
}

// Dequeue marks the oldest pending job as processing and returns a copy of it, or nil.
// Changes to the copy are stored with Update.
func (q *Queue) Dequeue() *models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.Status == models.JobStatusPending {
			job.Status = models.JobStatusProcessing
			q.persistOrLog()
			out := *job
			return &out
		}
	}
	return nil
}

func (q *Queue) Update(job *models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, j := range q.jobs {
		if j.ID == job.ID {
			stored := *job
			q.jobs[i] = &stored
			return q.persist()
		}
	}
	return nil
}

// Requeue puts a job back to pending and wakes the worker.
func (q *Queue) Requeue(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, j := range q.jobs {
		if j.ID == jobID {
			j.Status = models.JobStatusPending
			q.Notify()
			return q.persist()
		}
	}
	return nil
}

func (q *Queue) Remove(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, j := range q.jobs {
		if j.ID == jobID {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return q.persist()
		}
	}
	return nil
}

func (q *Queue) Wait() <-chan struct{} {
	return q.notification
}

func (q *Queue) Notify() {
	select {
	case q.notification <- struct{}{}:
	default:
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingLocked()
}

// Jobs returns a copy of every job in the queue.
func (q *Queue) Jobs() []models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Job, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = *j
	}
	return out
}

func (q *Queue) pendingLocked() int {
	count := 0
	for _, job := range q.jobs {
		if job.Status == models.JobStatusPending {
			count++
		}
	}
	return count
}

func (q *Queue) persistOrLog() {
	if err := q.persist(); err != nil {
		slog.Warn("failed to persist queue", slog.String("path", q.persistPath), slog.String("error", err.Error()))
	}
}

// persist writes through a temporary file so a crash never leaves a truncated queue.
func (q *Queue) persist() error {
	if q.persistPath == "" {
		return nil
	}

	data, err := json.MarshalIndent(q.jobs, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(q.persistPath), ".queue-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), q.persistPath)
}

func (q *Queue) load() error {
	if q.persistPath == "" {
		return nil
	}

	data, err := os.ReadFile(q.persistPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &q.jobs)
}
