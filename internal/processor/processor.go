package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clobrano/youtubedoc/internal/models"
	"github.com/clobrano/youtubedoc/internal/notifier"
	"github.com/clobrano/youtubedoc/internal/queue"
	"github.com/clobrano/youtubedoc/internal/youtube"
	"github.com/clobrano/youtubedoc/internal/youtubeurl"
)

// ErrOutputExists is returned when attempting to write a document that already exists
var ErrOutputExists = errors.New("output file already exists")

const (
	maxRetries  = 3
	baseBackoff = 5 * time.Second
	jobTimeout  = 10 * time.Minute
)

// WorkerConfig holds what the inbox worker needs beyond its collaborators.
type WorkerConfig struct {
	OutputDir           string
	Language            string
	MaxTranscriptLength int
}

// Processor documents the jobs found in the queue, one at a time.
type Processor struct {
	cfg      WorkerConfig
	queue    *queue.Queue
	service  *Service
	notifier *notifier.Notifier
	logger   *slog.Logger
	backoff  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	timers []*time.Timer
}

func New(cfg WorkerConfig, q *queue.Queue, svc *Service, ntfy *notifier.Notifier, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = models.DefaultLanguage
	}
	if cfg.MaxTranscriptLength == 0 {
		cfg.MaxTranscriptLength = models.DefaultMaxTranscriptLength
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		cfg:      cfg,
		queue:    q,
		service:  svc,
		notifier: ntfy,
		logger:   logger,
		backoff:  baseBackoff,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *Processor) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop cancels the running job, waits for the worker to exit and drops pending retries.
func (p *Processor) Stop() {
	p.cancel()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

func (p *Processor) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.queue.Wait():
			p.processQueue()
		}
	}
}

func (p *Processor) processQueue() {
	for {
		if p.ctx.Err() != nil {
			return
		}
		job := p.queue.Dequeue()
		if job == nil {
			return
		}
		p.processJob(job)
	}
}

func (p *Processor) processJob(job *models.Job) {
	log := p.logger.With(slog.String("job", job.Filename), slog.String("url", job.URL))
	log.Info("processing job")

	ctx, cancel := context.WithTimeout(p.ctx, jobTimeout)
	defer cancel()

	if job.VideoID == "" {
		id, ok := youtubeurl.ExtractVideoID(job.URL)
		if !ok {
			p.failJob(job, fmt.Errorf("%w: %s", models.ErrInvalidURL, job.URL))
			return
		}
		job.VideoID = id
	}

	// Skip videos already documented in the output directory
	existing, err := p.existingOutput(job.VideoID)
	if err != nil {
		log.Error("failed to check output directory", slog.String("error", err.Error()))
		p.failJob(job, err)
		return
	}
	if existing != "" {
		job.OutputPath = existing
		log.Info("skipping job, output file already exists", slog.String("output", existing))
		p.skipJob(ctx, job)
		return
	}

	// Send start notification only on first attempt
	if job.Retries == 0 {
		if err := p.notifier.SendStart(ctx, job); err != nil {
			log.Warn("failed to send start notification", slog.String("error", err.Error()))
		}
	}

	doc, err := p.service.Generate(ctx, job.Query(p.cfg.Language, p.cfg.MaxTranscriptLength), job.Prompt)
	if err != nil {
		if p.ctx.Err() != nil {
			// Shutting down: leave the job for the next run.
			job.Status = models.JobStatusPending
			p.queue.Update(job)
			return
		}
		if p.shouldRetry(job, err) {
			p.retryJob(job, err)
			return
		}
		p.failJob(job, err)
		return
	}

	job.Title = doc.Info.Title
	path, err := p.saveDocument(doc)
	if err != nil {
		// Race condition: another worker already created the output file
		if errors.Is(err, ErrOutputExists) {
			job.OutputPath = path
			log.Info("skipping job, output file created by concurrent worker")
			p.skipJob(ctx, job)
			return
		}
		p.failJob(job, fmt.Errorf("failed to save document: %w", err))
		return
	}
	job.OutputPath = path
	job.ContentURL = p.service.Publish(ctx, doc)

	if err := p.notifier.SendSuccess(ctx, job); err != nil {
		log.Warn("failed to send success notification", slog.String("error", err.Error()))
	}

	p.completeJob(job)
}

// shouldRetry reports whether err may go away on its own.
func (p *Processor) shouldRetry(job *models.Job, err error) bool {
	if errors.Is(err, models.ErrInvalidURL) || errors.Is(err, models.ErrTranscriptTooShort) || errors.Is(err, youtube.ErrVideoUnavailable) {
		return false
	}
	return job.Retries < maxRetries
}

// retryJob keeps the job out of the pending set until its backoff expires.
func (p *Processor) retryJob(job *models.Job, err error) {
	job.Retries++
	job.Error = err.Error()
	job.UpdatedAt = time.Now()

	backoff := time.Duration(job.Retries) * p.backoff
	p.logger.Warn("job failed, retrying",
		slog.String("job", job.Filename),
		slog.Int("attempt", job.Retries),
		slog.Int("max_retries", maxRetries),
		slog.Duration("backoff", backoff),
		slog.String("error", err.Error()))

	p.queue.Update(job)

	p.mu.Lock()
	id := job.ID
	p.timers = append(p.timers, time.AfterFunc(backoff, func() {
		if p.ctx.Err() != nil {
			return
		}
		if err := p.queue.Requeue(id); err != nil {
			p.logger.Warn("failed to requeue job", slog.String("job", job.Filename), slog.String("error", err.Error()))
		}
	}))
	p.mu.Unlock()
}

func (p *Processor) failJob(job *models.Job, err error) {
	job.Status = models.JobStatusFailed
	job.Error = err.Error()
	job.UpdatedAt = time.Now()

	p.logger.Error("job failed permanently", slog.String("job", job.Filename), slog.String("error", err.Error()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if notifyErr := p.notifier.SendFailure(ctx, job); notifyErr != nil {
		p.logger.Warn("failed to send failure notification", slog.String("job", job.Filename), slog.String("error", notifyErr.Error()))
	}

	p.queue.Update(job)
}

func (p *Processor) skipJob(ctx context.Context, job *models.Job) {
	if err := p.notifier.SendSkipped(ctx, job); err != nil {
		p.logger.Warn("failed to send skipped notification", slog.String("job", job.Filename), slog.String("error", err.Error()))
	}
	p.completeJob(job)
}

func (p *Processor) completeJob(job *models.Job) {
	job.Status = models.JobStatusCompleted
	job.Error = ""
	job.UpdatedAt = time.Now()

	p.logger.Info("job completed", slog.String("job", job.Filename), slog.String("output", job.OutputPath))

	// Remove the input file
	if job.FilePath != "" {
		if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to remove input file", slog.String("path", job.FilePath), slog.String("error", err.Error()))
		}
	}

	p.queue.Remove(job.ID)
}

// OutputFilename names a document after its video: "<title> [<id>].md".
func OutputFilename(title, videoID string) string {
	return fmt.Sprintf("%s [%s].md", SanitizeFilename(title), videoID)
}

func (p *Processor) existingOutput(videoID string) (string, error) {
	entries, err := os.ReadDir(p.cfg.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read output directory: %w", err)
	}
	suffix := " [" + videoID + "].md"
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			return filepath.Join(p.cfg.OutputDir, e.Name()), nil
		}
	}
	return "", nil
}

func (p *Processor) saveDocument(doc *Document) (string, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(p.cfg.OutputDir, OutputFilename(doc.Info.Title, doc.VideoID))

	// Use O_EXCL for atomic creation - fails if file already exists (race condition)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return path, ErrOutputExists
		}
		return "", err
	}

	if _, err := f.WriteString(doc.Markdown); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
