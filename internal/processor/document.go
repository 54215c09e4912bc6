package processor

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/clobrano/youtubedoc/internal/models"
)

// GenerateDocumentation renders the markdown document for a video. The summary
// section is omitted when summary is empty and comments only appear when
// includeComments is set.
func GenerateDocumentation(info models.VideoInfo, transcript string, comments []string, includeComments bool, summary string) string {
	var b strings.Builder

	b.WriteString("# YouTube Video Documentation\n")
	fmt.Fprintf(&b, "**Title:** %s\n", orUnknown(info.Title))
	fmt.Fprintf(&b, "**URL:** %s\n", orUnknown(info.URL))
	fmt.Fprintf(&b, "**Duration:** %s\n", FormatDuration(info.Duration))
	fmt.Fprintf(&b, "**Views:** %s\n", formatViews(info.ViewCount))
	fmt.Fprintf(&b, "**Channel:** %s\n", orUnknown(info.Channel))
	fmt.Fprintf(&b, "**Upload Date:** %s\n\n", orUnknown(info.UploadDate))

	if info.Description != "" {
		fmt.Fprintf(&b, "## Description\n%s\n\n", info.Description)
	}

	if summary = strings.TrimSpace(summary); summary != "" {
		fmt.Fprintf(&b, "## Summary\n%s\n\n", summary)
	}

	if transcript != "" {
		fmt.Fprintf(&b, "## Transcript\n%s\n\n", transcript)
	}

	if includeComments && len(comments) > 0 {
		b.WriteString("## Comments\n")
		for i, c := range comments {
			if i == MaxComments {
				break
			}
			fmt.Fprintf(&b, "**Comment %d:** %s\n\n", i+1, c)
		}
	}

	fmt.Fprintf(&b, "**Estimated Tokens:** %d\n", EstimateTokens(b.String()))
	return b.String()
}

// FormatDuration renders seconds as 45s, 2m 5s or 1h 2m 3s.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
	}
}

// EstimateTokens approximates the token count as four characters per token.
func EstimateTokens(text string) int {
	return runeLen(text) / 4
}

// CropForDisplay limits md to max characters, prefixing a note when it was cut.
func CropForDisplay(md string, max int) string {
	if max <= 0 {
		return md
	}
	cut, ok := truncateRunes(md, max)
	if !ok {
		return md
	}
	return fmt.Sprintf("(Content cropped to %dk characters)\n", max/1000) + cut
}

func formatViews(views *int64) string {
	if views == nil {
		return "Unknown"
	}
	return humanize.Comma(*views)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
