package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one documentation request picked up from the inbox directory.
type Job struct {
	ID                  string    `json:"id"`
	Filename            string    `json:"filename"`
	FilePath            string    `json:"file_path"`
	URL                 string    `json:"url"`
	VideoID             string    `json:"video_id"`
	IncludeComments     bool      `json:"include_comments,omitempty"`
	Language            string    `json:"language,omitempty"`
	MaxTranscriptLength int       `json:"max_transcript_length,omitempty"`
	Prompt              string    `json:"prompt,omitempty"`
	Status              JobStatus `json:"status"`
	Title               string    `json:"title,omitempty"`
	OutputPath          string    `json:"output_path,omitempty"`
	ContentURL          string    `json:"content_url,omitempty"`
	Error               string    `json:"error,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Retries             int       `json:"retries"`
}

func NewJob(filePath, url, videoID string) *Job {
	now := time.Now()
	// Extract filename without extension
	base := filepath.Base(filePath)
	filename := strings.TrimSuffix(base, filepath.Ext(base))

	return &Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		FilePath:  filePath,
		URL:       url,
		VideoID:   videoID,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Query builds the video query for this job, filling unset options with defaults.
func (j *Job) Query(defaultLanguage string, defaultMaxTranscript int) VideoQuery {
	q := VideoQuery{
		URL:                 j.URL,
		IncludeComments:     j.IncludeComments,
		Language:            j.Language,
		MaxTranscriptLength: j.MaxTranscriptLength,
	}
	if q.Language == "" {
		q.Language = defaultLanguage
	}
	if q.MaxTranscriptLength == 0 {
		q.MaxTranscriptLength = defaultMaxTranscript
	}
	return q
}
