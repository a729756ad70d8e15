package internal

import (
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON extracts a candidate JSON payload from raw model output.
//
// It tries, in order: a ```json fenced block, then the largest substring
// bounded by the first '{' and the last '}'. This is a best-effort heuristic,
// not a parser: it assumes the output carries at most one JSON object of
// interest. When neither pattern matches it returns ErrNoJSONFound.
func ExtractJSON(raw string) (string, error) {
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", ErrNoJSONFound
}
