package models

import (
	"errors"
	"fmt"

	"github.com/clobrano/youtubedoc/internal/youtubeurl"
)

const (
	DefaultLanguage            = "en"
	DefaultMaxTranscriptLength = 10_000_000
	MinTranscriptLength        = 100
)

var (
	// ErrInvalidURL is returned when the input is not a supported YouTube video link.
	ErrInvalidURL = errors.New("invalid YouTube URL format")
	// ErrTranscriptTooShort is returned when MaxTranscriptLength is below MinTranscriptLength.
	ErrTranscriptTooShort = fmt.Errorf("transcript length must be at least %d characters", MinTranscriptLength)
)

// VideoQuery describes what to extract for one video.
type VideoQuery struct {
	URL                 string `json:"url"`
	MaxTranscriptLength int    `json:"max_transcript_length"`
	IncludeComments     bool   `json:"include_comments"`
	Language            string `json:"language"`
}

// NewVideoQuery returns a query with the default options.
func NewVideoQuery(url string) VideoQuery {
	return VideoQuery{
		URL:                 url,
		MaxTranscriptLength: DefaultMaxTranscriptLength,
		Language:            DefaultLanguage,
	}
}

func (q VideoQuery) Validate() error {
	if !youtubeurl.IsYouTubeURL(q.URL) {
		return ErrInvalidURL
	}
	if q.MaxTranscriptLength < MinTranscriptLength {
		return ErrTranscriptTooShort
	}
	return nil
}

func (q VideoQuery) VideoID() (string, error) {
	id, ok := youtubeurl.ExtractVideoID(q.URL)
	if !ok {
		return "", ErrInvalidURL
	}
	return id, nil
}

// VideoInfo is the metadata gathered for a video. Duration is in seconds and
// UploadDate uses the YYYYMMDD layout.
type VideoInfo struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Duration     int    `json:"duration"`
	ViewCount    *int64 `json:"view_count,omitempty"`
	Channel      string `json:"channel,omitempty"`
	UploadDate   string `json:"upload_date,omitempty"`
	URL          string `json:"url"`
	VideoID      string `json:"video_id"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Source       string `json:"source,omitempty"`
}

// ThumbnailURL returns the default thumbnail location for a video id.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// PlaceholderInfo is used when every metadata source failed.
func PlaceholderInfo(videoID, url string) VideoInfo {
	return VideoInfo{
		Title:        "Video " + videoID,
		Description:  "Description not available",
		Channel:      "Unknown Channel",
		URL:          url,
		VideoID:      videoID,
		ThumbnailURL: ThumbnailURL(videoID),
		Source:       "placeholder",
	}
}
