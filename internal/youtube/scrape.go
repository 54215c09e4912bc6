package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/clobrano/youtubedoc/internal/models"
)

const defaultWatchBase = "https://www.youtube.com"

// PageScraper extracts basic metadata from the public watch page.
type PageScraper struct {
	client  *http.Client
	baseURL string
}

func NewPageScraper(client *http.Client) *PageScraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &PageScraper{client: client, baseURL: defaultWatchBase}
}

func (p *PageScraper) Name() string { return "page-scraper" }

func (p *PageScraper) Metadata(ctx context.Context, videoID, rawURL string) (models.VideoInfo, error) {
	pageURL, err := url.Parse(p.baseURL + "/watch?v=" + url.QueryEscape(videoID))
	if err != nil {
		return models.VideoInfo{}, fmt.Errorf("invalid watch url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return models.VideoInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.VideoInfo{}, fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return models.VideoInfo{}, ErrVideoUnavailable
	case resp.StatusCode >= 300:
		return models.VideoInfo{}, fmt.Errorf("watch page returned status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return models.VideoInfo{}, fmt.Errorf("failed to parse watch page: %w", err)
	}

	title := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(article.Title), "- YouTube"))
	if title == "" || strings.EqualFold(title, "YouTube") {
		return models.VideoInfo{}, errors.New("watch page has no video title")
	}

	info := models.VideoInfo{
		Title:        title,
		Description:  strings.TrimSpace(article.Excerpt),
		Channel:      strings.TrimSpace(article.Byline),
		URL:          rawURL,
		VideoID:      videoID,
		ThumbnailURL: models.ThumbnailURL(videoID),
		Source:       p.Name(),
	}
	if article.Image != "" {
		info.ThumbnailURL = article.Image
	}
	return info, nil
}
