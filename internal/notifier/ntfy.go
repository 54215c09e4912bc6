// Package notifier sends job updates to an ntfy.sh topic.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clobrano/youtubedoc/internal/models"
)

const defaultServer = "https://ntfy.sh"

type Notifier struct {
	server string
	topic  string
	client *http.Client
}

// New returns nil when topic is empty; every method is a no-op on a nil Notifier.
func New(topic string) *Notifier {
	return NewWithServer(defaultServer, topic)
}

func NewWithServer(server, topic string) *Notifier {
	if topic == "" {
		return nil
	}
	return &Notifier{
		server: strings.TrimRight(server, "/"),
		topic:  topic,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *Notifier) SendStart(ctx context.Context, job *models.Job) error {
	if n == nil {
		return nil
	}
	title := "YouTube to Doc: generating documentation"
	message := fmt.Sprintf("Started %s\n\nJob ID: %s", job.URL, job.ID)
	return n.send(ctx, title, message, "low", "hourglass_flowing_sand")
}

func (n *Notifier) SendSuccess(ctx context.Context, job *models.Job) error {
	if n == nil {
		return nil
	}
	title := "YouTube to Doc: documentation ready"
	var b strings.Builder
	if job.Title != "" {
		fmt.Fprintf(&b, "%s\n", job.Title)
	}
	fmt.Fprintf(&b, "Documentation for %s is ready.", job.URL)
	if job.ContentURL != "" {
		fmt.Fprintf(&b, "\n\n%s", job.ContentURL)
	} else if job.OutputPath != "" {
		fmt.Fprintf(&b, "\n\nSaved to %s", job.OutputPath)
	}
	fmt.Fprintf(&b, "\n\nJob ID: %s", job.ID)
	return n.send(ctx, title, b.String(), "default", "white_check_mark")
}

func (n *Notifier) SendFailure(ctx context.Context, job *models.Job) error {
	if n == nil {
		return nil
	}
	title := "YouTube to Doc: documentation failed"
	message := fmt.Sprintf("Failed to document %s\n\nError: %s\n\nJob ID: %s", job.URL, job.Error, job.ID)
	return n.send(ctx, title, message, "high", "x")
}

func (n *Notifier) SendSkipped(ctx context.Context, job *models.Job) error {
	if n == nil {
		return nil
	}
	title := "YouTube to Doc: already documented"
	message := fmt.Sprintf("Skipped %s, a document for video %s already exists.\n\nJob ID: %s", job.URL, job.VideoID, job.ID)
	return n.send(ctx, title, message, "low", "fast_forward")
}

func (n *Notifier) send(ctx context.Context, title, message, priority, tags string) error {
	url := fmt.Sprintf("%s/%s", n.server, n.topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	return nil
}
