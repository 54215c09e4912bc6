package processor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reserved on Windows, plus both path separators. Sync tools like Syncthing
// refuse these even on filesystems that allow them.
const reservedChars = `<>:"/\|?*`

// maxFilenameBytes leaves room for the " [<id>].md" suffix within common 255 byte limits.
const maxFilenameBytes = 200

// SanitizeFilename turns a video title into a filename that is valid on
// Windows, Linux and macOS. Control characters are dropped, reserved and
// unprintable ones become a single underscore, and the result is trimmed of
// leading and trailing dots, spaces and underscores. "unnamed" is returned when
// nothing usable is left.
func SanitizeFilename(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	prevUnderscore := false
	for _, r := range title {
		if r < 0x20 {
			continue
		}
		if strings.ContainsRune(reservedChars, r) || !unicode.IsPrint(r) || r == utf8.RuneError {
			r = '_'
		}
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}

	result := strings.Trim(b.String(), " ._")

	if len(result) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = strings.TrimRight(result[:cut], " ._")
	}

	if result == "" {
		return "unnamed"
	}
	return result
}
