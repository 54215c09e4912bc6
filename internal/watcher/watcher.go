// Package watcher turns files dropped into the inbox directory into queued
// documentation jobs.
package watcher

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/clobrano/youtubedoc/internal/models"
	"github.com/clobrano/youtubedoc/internal/queue"
	"github.com/clobrano/youtubedoc/internal/youtubeurl"
)

const (
	defaultDebounce = 500 * time.Millisecond
	tickInterval    = 100 * time.Millisecond
)

// Extensions lists the inbox file types that are picked up.
var Extensions = []string{".url", ".txt", ".ytdoc"}

type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	watchDir     string
	queue        *queue.Queue
	logger       *slog.Logger
	debounceTime time.Duration
	pending      map[string]time.Time
	mu           sync.Mutex
	done         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func New(watchDir string, q *queue.Queue, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		fsWatcher:    fsw,
		watchDir:     watchDir,
		queue:        q,
		logger:       logger.With(slog.String("dir", watchDir)),
		debounceTime: defaultDebounce,
		pending:      make(map[string]time.Time),
		done:         make(chan struct{}),
	}, nil
}

// Start queues the files already in the inbox and then watches for new ones.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.watchDir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}
	if err := w.fsWatcher.Add(w.watchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.watchDir, err)
	}

	if err := w.processExisting(); err != nil {
		w.logger.Warn("error processing existing files", slog.String("error", err.Error()))
	}

	w.wg.Add(2)
	go w.run()
	go w.debounceLoop()

	w.logger.Info("watching inbox")
	return nil
}

// Stop ends both loops and waits for them to return. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) processExisting() error {
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsInputFile(entry.Name()) {
			continue
		}
		w.processFile(filepath.Join(w.watchDir, entry.Name()))
	}
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && IsInputFile(filepath.Base(event.Name)) {
				w.scheduleProcess(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// scheduleProcess pushes the deadline back on every write so a file is read once it settles.
func (w *Watcher) scheduleProcess(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now().Add(w.debounceTime)
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			for _, path := range w.due(time.Now()) {
				w.processFile(path)
			}
		}
	}
}

func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, deadline := range w.pending {
		if now.After(deadline) {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

func (w *Watcher) processFile(path string) {
	log := w.logger.With(slog.String("file", filepath.Base(path)))

	input, err := parseInputFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error("failed to parse input file", slog.String("error", err.Error()))
		}
		return
	}
	if input.URL == "" {
		log.Debug("input file has no URL yet")
		return
	}

	// Unrecognized links are still queued so the worker reports the failure.
	videoID, ok := youtubeurl.ExtractVideoID(input.URL)
	if !ok {
		log.Warn("input file does not contain a YouTube video URL", slog.String("url", input.URL))
	}

	job := models.NewJob(path, input.URL, videoID)
	job.IncludeComments = input.IncludeComments
	job.Language = input.Language
	job.MaxTranscriptLength = input.MaxTranscriptLength
	job.Prompt = input.Prompt

	if err := w.queue.Enqueue(job); err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			log.Debug("job already queued")
			return
		}
		log.Error("failed to enqueue job", slog.String("error", err.Error()))
		return
	}

	log.Info("queued job", slog.String("job_id", job.ID), slog.String("url", input.URL))
}

// IsInputFile reports whether name has one of the inbox extensions.
func IsInputFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

type inputFile struct {
	URL                 string `yaml:"url"`
	IncludeComments     bool   `yaml:"include_comments"`
	Language            string `yaml:"language"`
	MaxTranscriptLength int    `yaml:"max_transcript_length"`
	Prompt              string `yaml:"prompt"`
}

// parseInputFile reads either a bare URL on the first non-empty line or a YAML
// front matter block with the job options.
func parseInputFile(path string) (inputFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return inputFile{}, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return inputFile{}, err
	}

	content := strings.TrimSpace(strings.Join(lines, "\n"))

	// Check for YAML front matter
	if strings.HasPrefix(content, "---") {
		parts := strings.SplitN(content, "---", 3)
		if len(parts) >= 3 {
			var input inputFile
			if err := yaml.Unmarshal([]byte(parts[1]), &input); err != nil {
				return inputFile{}, fmt.Errorf("invalid front matter: %w", err)
			}
			input.URL = strings.TrimSpace(input.URL)
			input.Language = strings.TrimSpace(input.Language)
			input.Prompt = strings.TrimSpace(input.Prompt)
			if input.URL == "" {
				// A body after the front matter may carry the link instead.
				input.URL = firstLine(parts[2])
			}
			return input, nil
		}
	}

	return inputFile{URL: firstLine(content)}, nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
