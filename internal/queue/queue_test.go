package queue

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clobrano/youtubedoc/internal/models"
)

func newJob(path string) *models.Job {
	return models.NewJob(path, "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ")
}

func TestEnqueueDequeue(t *testing.T) {
	q, err := New("")
	require.NoError(t, err)

	first := newJob("/inbox/a.url")
	second := newJob("/inbox/b.url")
	require.NoError(t, q.Enqueue(first))
	require.NoError(t, q.Enqueue(second))

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a notification after enqueue")
	}

	got := q.Dequeue()
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
	assert.Equal(t, 1, q.PendingCount())

	assert.Equal(t, second.ID, q.Dequeue().ID)
	assert.Nil(t, q.Dequeue())
	assert.Equal(t, 2, q.Len())
}

func TestEnqueueDuplicate(t *testing.T) {
	q, err := New("")
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(newJob("/inbox/a.url")))
	assert.ErrorIs(t, q.Enqueue(newJob("/inbox/a.url")), ErrDuplicate)

	failed := q.Dequeue()
	failed.Status = models.JobStatusFailed
	require.NoError(t, q.Update(failed))
	assert.NoError(t, q.Enqueue(newJob("/inbox/a.url")), "a failed job can be retried by dropping the file again")
}

func TestUpdateAndRemove(t *testing.T) {
	q, err := New("")
	require.NoError(t, err)

	job := newJob("/inbox/a.url")
	require.NoError(t, q.Enqueue(job))

	updated := *job
	updated.Title = "Never Gonna Give You Up"
	require.NoError(t, q.Update(&updated))
	assert.Equal(t, "Never Gonna Give You Up", q.Jobs()[0].Title)

	require.NoError(t, q.Remove(job.ID))
	assert.Equal(t, 0, q.Len())
	assert.NoError(t, q.Remove("missing"))
}

func TestPersistAndRecover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")

	q, err := New(path)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(newJob("/inbox/a.url")))
	require.NoError(t, q.Enqueue(newJob("/inbox/b.url")))
	require.NotNil(t, q.Dequeue())

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
	assert.Equal(t, 2, reloaded.PendingCount(), "processing jobs go back to pending")

	select {
	case <-reloaded.Wait():
	default:
		t.Fatal("expected a notification for recovered pending jobs")
	}
}

func TestJobsIsACopy(t *testing.T) {
	q, err := New("")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(newJob("/inbox/a.url")))

	jobs := q.Jobs()
	jobs[0].Status = models.JobStatusFailed
	assert.Equal(t, models.JobStatusPending, q.Jobs()[0].Status)
}

func TestDequeueReturnsACopy(t *testing.T) {
	q, err := New("")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(newJob("/inbox/a.url")))

	job := q.Dequeue()
	job.Title = "changed"
	assert.Empty(t, q.Jobs()[0].Title, "only Update stores changes")
}

func TestRequeue(t *testing.T) {
	q, err := New("")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(newJob("/inbox/a.url")))
	<-q.Wait()

	job := q.Dequeue()
	require.NotNil(t, job)
	assert.Nil(t, q.Dequeue())

	require.NoError(t, q.Requeue(job.ID))
	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a notification after requeue")
	}
	again := q.Dequeue()
	require.NotNil(t, again)
	assert.Equal(t, job.ID, again.ID)
	assert.NoError(t, q.Requeue("missing"))
}
