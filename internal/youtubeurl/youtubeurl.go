// Package youtubeurl recognizes YouTube video links and extracts their
// 11-character video identifiers.
//
// It is the single recognizer shared by the HTTP handlers, the JSON
// recognition endpoint used by the browser form, the CLI and the inbox
// watcher. All functions are pure and safe for concurrent use.
//
// Matching is anchored at the start of the trimmed input and is slightly
// stricter than a plain prefix match: the identifier must not be followed by
// another identifier character, so "youtu.be/dQw4w9WgXcQX" is rejected rather
// than read as "dQw4w9WgXcQ". Anything else may follow, such as "&t=42s" or
// "#comments".
package youtubeurl

import (
	"regexp"
	"strings"
)

// VideoIDLength is the fixed length of a YouTube video identifier.
const VideoIDLength = 11

// Scheme and host are matched case-insensitively; the identifier is not.
const (
	schemePrefix = `^(?i:https?://)?`
	idCapture    = `([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`
)

// Pattern is one supported surface form of a YouTube video link.
type Pattern struct {
	Name    string `json:"name"`
	Example string `json:"example"`
	re      *regexp.Regexp
}

// Declaration order is the tie-break order.
var patterns = []Pattern{
	{
		Name:    "watch",
		Example: "https://www.youtube.com/watch?v=VIDEO_ID",
		re:      regexp.MustCompile(schemePrefix + `(?i:www\.|m\.)?(?i:youtube\.com)/watch\?v=` + idCapture),
	},
	{
		Name:    "short",
		Example: "https://youtu.be/VIDEO_ID",
		re:      regexp.MustCompile(schemePrefix + `(?i:www\.)?(?i:youtu\.be)/` + idCapture),
	},
	{
		Name:    "embed",
		Example: "https://www.youtube.com/embed/VIDEO_ID",
		re:      regexp.MustCompile(schemePrefix + `(?i:www\.|m\.)?(?i:youtube\.com)/embed/` + idCapture),
	},
	{
		Name:    "direct",
		Example: "https://www.youtube.com/v/VIDEO_ID",
		re:      regexp.MustCompile(schemePrefix + `(?i:www\.|m\.)?(?i:youtube\.com)/v/` + idCapture),
	},
}

var videoIDRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Result is the outcome of recognizing one input string.
type Result struct {
	Valid        bool   `json:"valid"`
	VideoID      string `json:"video_id,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
}

// Recognize classifies input and, when it names a video, returns the
// identifier and canonical watch URL.
func Recognize(input string) Result {
	s := strings.TrimSpace(input)
	if s == "" {
		return Result{}
	}

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(s)
		if len(m) < 2 {
			continue
		}
		return Result{
			Valid:        true,
			VideoID:      m[1],
			CanonicalURL: WatchURL(m[1]),
			Pattern:      p.Name,
		}
	}

	return Result{}
}

// IsYouTubeURL reports whether input starts with a supported YouTube video link.
func IsYouTubeURL(input string) bool {
	return Recognize(input).Valid
}

// ExtractVideoID returns the video identifier of the first matching pattern.
// ok is false when input is not a supported YouTube video link.
func ExtractVideoID(input string) (id string, ok bool) {
	r := Recognize(input)
	return r.VideoID, r.Valid
}

// Normalize rewrites any supported link to https://www.youtube.com/watch?v=ID.
func Normalize(input string) (string, bool) {
	r := Recognize(input)
	return r.CanonicalURL, r.Valid
}

// IsVideoID reports whether s has the syntactic shape of a video identifier.
func IsVideoID(s string) bool {
	return videoIDRegexp.MatchString(s)
}

// WatchURL builds the canonical watch URL for id. It does not validate id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Patterns returns the supported surface forms in matching order.
func Patterns() []Pattern {
	out := make([]Pattern, len(patterns))
	copy(out, patterns)
	return out
}
