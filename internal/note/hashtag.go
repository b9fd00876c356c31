package note

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	hashtagRe    = regexp.MustCompile(`#[^\s#]+`)
	escapeRe     = regexp.MustCompile(`\\([#\\\[\]*_])`)
)

// SanitizeContent strips the backslash escapes a markdown editor inserts in
// front of hash, bracket and emphasis characters.
func SanitizeContent(content string) string {
	return escapeRe.ReplaceAllString(content, "$1")
}

// ExtractHashtags scans content for #tokens. Fenced code blocks are excluded
// and matches must be bounded by whitespace or the string edges, which also
// rejects the '#' of a URL fragment. The leading '#' is stripped from returned
// tokens; duplicates are removed preserving order.
func ExtractHashtags(content string) []string {
	scanned := fencedCodeRe.ReplaceAllString(content, " ")

	var tags []string
	seen := make(map[string]bool)
	for _, loc := range hashtagRe.FindAllStringIndex(scanned, -1) {
		start, end := loc[0], loc[1]
		if !boundedBefore(scanned, start) || !boundedAfter(scanned, end) {
			continue
		}

		token := strings.TrimRight(scanned[start+1:end], "/")
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		tags = append(tags, token)
	}
	return tags
}

func boundedBefore(s string, i int) bool {
	return i == 0 || isSpace(s[i-1])
}

func boundedAfter(s string, i int) bool {
	return i == len(s) || isSpace(s[i])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
