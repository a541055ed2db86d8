package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// illegalRuns matches characters that are unsafe in headers and filesystem
// paths, plus whitespace; runs collapse to a single separator.
var illegalRuns = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// SanitizeFilename produces a safe display filename: decompose to NFD, drop
// non-ASCII code points, collapse illegal characters and whitespace runs to a
// single space (or underscore), trim, default to "video" when nothing
// survives, and append the extension exactly once. The result is idempotent.
func SanitizeFilename(name, ext string, underscores bool) string {
	if ext == "" {
		ext = "mp4"
	}
	sep := " "
	if underscores {
		sep = "_"
	}

	name = norm.NFD.String(name)

	var b strings.Builder
	for _, r := range name {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	name = illegalRuns.ReplaceAllString(b.String(), sep)
	name = strings.TrimSpace(name)
	if underscores {
		name = strings.Trim(name, "_")
	}
	if name == "" {
		name = "video"
	}

	if !strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext)) {
		name += "." + ext
	}
	return name
}
