package processor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clobrano/youtubedoc/internal/models"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{59, "59s"},
		{60, "1m 0s"},
		{125, "2m 5s"},
		{3599, "59m 59s"},
		{3600, "1h 0m 0s"},
		{3723, "1h 2m 3s"},
		{-5, "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestGenerateDocumentation(t *testing.T) {
	views := int64(1234567)
	info := models.VideoInfo{
		Title:       "Never Gonna Give You Up",
		Description: "The official video",
		Duration:    213,
		ViewCount:   &views,
		Channel:     "Rick Astley",
		UploadDate:  "20091025",
		URL:         "https://youtu.be/dQw4w9WgXcQ",
	}

	doc := GenerateDocumentation(info, "hello transcript", []string{"first", "second"}, true, "a summary")

	body := "# YouTube Video Documentation\n" +
		"**Title:** Never Gonna Give You Up\n" +
		"**URL:** https://youtu.be/dQw4w9WgXcQ\n" +
		"**Duration:** 3m 33s\n" +
		"**Views:** 1,234,567\n" +
		"**Channel:** Rick Astley\n" +
		"**Upload Date:** 20091025\n\n" +
		"## Description\nThe official video\n\n" +
		"## Summary\na summary\n\n" +
		"## Transcript\nhello transcript\n\n" +
		"## Comments\n" +
		"**Comment 1:** first\n\n" +
		"**Comment 2:** second\n\n"
	want := body + fmt.Sprintf("**Estimated Tokens:** %d\n", len(body)/4)
	assert.Equal(t, want, doc)
}

func TestGenerateDocumentationPlaceholder(t *testing.T) {
	info := models.PlaceholderInfo("dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ")
	info.Description = ""

	doc := GenerateDocumentation(info, "", []string{"ignored"}, false, "")

	assert.Contains(t, doc, "**Title:** Video dQw4w9WgXcQ\n")
	assert.Contains(t, doc, "**Duration:** 0s\n")
	assert.Contains(t, doc, "**Views:** Unknown\n")
	assert.Contains(t, doc, "**Upload Date:** Unknown\n\n")
	assert.NotContains(t, doc, "## Description")
	assert.NotContains(t, doc, "## Summary")
	assert.NotContains(t, doc, "## Transcript")
	assert.NotContains(t, doc, "## Comments")
	assert.True(t, strings.HasSuffix(doc, "\n"))
}

func TestGenerateDocumentationCapsComments(t *testing.T) {
	comments := make([]string, 30)
	for i := range comments {
		comments[i] = fmt.Sprintf("c%d", i)
	}
	doc := GenerateDocumentation(models.VideoInfo{}, "", comments, true, "")
	assert.Equal(t, MaxComments, strings.Count(doc, "**Comment "))
	assert.Contains(t, doc, "**Comment 20:** c19\n")
}

func TestEstimateTokensCountsCharacters(t *testing.T) {
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 2, EstimateTokens("日本語ファイル名"))
}

func TestCropForDisplay(t *testing.T) {
	assert.Equal(t, "short", CropForDisplay("short", 300_000))

	long := strings.Repeat("x", 2500)
	got := CropForDisplay(long, 2000)
	assert.Equal(t, "(Content cropped to 2k characters)\n"+strings.Repeat("x", 2000), got)

	assert.Equal(t, long, CropForDisplay(long, 0))
}

func TestTruncateTranscript(t *testing.T) {
	assert.Equal(t, "abc", truncateTranscript("abc", 3))
	assert.Equal(t, "ab\n[Transcript truncated...]", truncateTranscript("abc", 2))
	assert.Equal(t, "日本\n[Transcript truncated...]", truncateTranscript("日本語", 2))
	assert.Equal(t, "abc", truncateTranscript("abc", 0))
}
