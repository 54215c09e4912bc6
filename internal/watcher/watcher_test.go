package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/clobrano/youtubedoc/internal/queue"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseInputFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    inputFile
		wantErr bool
	}{
		{
			name:    "bare url",
			content: "https://youtu.be/dQw4w9WgXcQ\n",
			want:    inputFile{URL: "https://youtu.be/dQw4w9WgXcQ"},
		},
		{
			name:    "leading blank lines",
			content: "\n\n   https://www.youtube.com/watch?v=dQw4w9WgXcQ  \nnotes\n",
			want:    inputFile{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		},
		{
			name: "front matter",
			content: `---
url: https://youtu.be/dQw4w9WgXcQ
include_comments: true
language: it
max_transcript_length: 5000
prompt: |
  List the chapters only.
---
`,
			want: inputFile{
				URL:                 "https://youtu.be/dQw4w9WgXcQ",
				IncludeComments:     true,
				Language:            "it",
				MaxTranscriptLength: 5000,
				Prompt:              "List the chapters only.",
			},
		},
		{
			name:    "front matter with url in body",
			content: "---\nlanguage: de\n---\nhttps://youtu.be/dQw4w9WgXcQ\n",
			want:    inputFile{URL: "https://youtu.be/dQw4w9WgXcQ", Language: "de"},
		},
		{
			name:    "empty",
			content: "",
			want:    inputFile{},
		},
		{
			name:    "broken front matter",
			content: "---\nurl: [unclosed\n---\n",
			wantErr: true,
		},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "input.url", tt.content)
			got, err := parseInputFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsInputFile(t *testing.T) {
	assert.True(t, IsInputFile("talk.url"))
	assert.True(t, IsInputFile("talk.TXT"))
	assert.True(t, IsInputFile("talk.ytdoc"))
	assert.False(t, IsInputFile("talk.md"))
	assert.False(t, IsInputFile("talk"))
}

func TestWatcherQueuesExistingAndNewFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFile(t, dir, "existing.url", "https://youtu.be/dQw4w9WgXcQ")
	writeFile(t, dir, "ignored.md", "https://youtu.be/_uQrJ0TkZlc")

	q, err := queue.New("")
	require.NoError(t, err)
	w, err := New(dir, q, nil)
	require.NoError(t, err)
	w.debounceTime = 10 * time.Millisecond

	require.NoError(t, w.Start())
	jobs := q.Jobs()
	require.Len(t, jobs, 1, "existing files are queued on start")
	assert.Equal(t, "dQw4w9WgXcQ", jobs[0].VideoID)
	assert.Equal(t, "existing", jobs[0].Filename)

	writeFile(t, dir, "new.ytdoc", "---\nurl: https://youtu.be/_uQrJ0TkZlc\nlanguage: it\n---\n")
	assert.Eventually(t, func() bool { return q.Len() == 2 }, 3*time.Second, 20*time.Millisecond)

	// Rewriting a queued file does not queue it twice.
	writeFile(t, dir, "existing.url", "https://youtu.be/dQw4w9WgXcQ\n")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 2, q.Len())

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())

	for _, j := range q.Jobs() {
		if j.Filename == "new" {
			assert.Equal(t, "it", j.Language)
			assert.Equal(t, "_uQrJ0TkZlc", j.VideoID)
		}
	}
}

func TestWatcherQueuesUnrecognizedURL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.txt", "https://vimeo.com/12345678")

	q, err := queue.New("")
	require.NoError(t, err)
	w, err := New(dir, q, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	defer w.Stop()

	jobs := q.Jobs()
	require.Len(t, jobs, 1)
	assert.Empty(t, jobs[0].VideoID)
	assert.Equal(t, "https://vimeo.com/12345678", jobs[0].URL)
}
