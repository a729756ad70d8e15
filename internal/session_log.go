package internal

import (
	"fmt"
	"strings"
)

// On-disk session log format: one UTF-8 text file per session, a sequence of
// human-readable blocks
//
//	Timestamp: <string>
//	Pregunta: <query text>
//
//	Respuesta: <response text>
//	--- Fin de respuesta ---
//
// Content lines that would collide with a field label, the end marker, or a
// field boundary are backslash-escaped on write and unescaped on read, so
// hostile content round-trips instead of corrupting the file.
const (
	labelTimestamp = "Timestamp: "
	labelQuery     = "Pregunta: "
	labelResponse  = "Respuesta: "
	endMarker      = "--- Fin de respuesta ---"
)

var fieldLabels = []string{labelTimestamp, labelQuery, labelResponse}

// EncodeTurn renders one turn as a log block, terminator and trailing blank
// line included.
func EncodeTurn(t Turn) string {
	var b strings.Builder
	b.WriteString(labelTimestamp + t.Timestamp + "\n")
	b.WriteString(labelQuery + escapeField(t.Query) + "\n")
	b.WriteString("\n")
	b.WriteString(labelResponse + escapeField(t.Response) + "\n")
	b.WriteString(endMarker + "\n")
	b.WriteString("\n")
	return b.String()
}

// ParseSessionLog parses a whole log file into turns. Blocks that fail to
// match the expected shape are dropped; the remaining turns are returned in
// file order. When blocks were dropped the turns come back alongside a
// *ParseError describing how many, so callers can surface the loss without
// losing the readable remainder.
func ParseSessionLog(path, content string) ([]Turn, error) {
	var turns []Turn
	dropped := 0

	lines := strings.Split(content, "\n")
	block := make([]string, 0, 8)

	flush := func() {
		if len(block) == 0 {
			return
		}
		nonEmpty := false
		for _, l := range block {
			if strings.TrimSpace(l) != "" {
				nonEmpty = true
				break
			}
		}
		if !nonEmpty {
			block = block[:0]
			return
		}
		if t, ok := parseTurnBlock(block); ok {
			turns = append(turns, t)
		} else {
			dropped++
		}
		block = block[:0]
	}

	for _, line := range lines {
		if line == endMarker {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()

	if dropped > 0 {
		return turns, &ParseError{Path: path, Err: fmt.Errorf("%d malformed block(s) dropped", dropped)}
	}
	return turns, nil
}

// CountPersistedTurns counts how many complete turns an existing log file
// already holds, by counting unescaped end-marker lines. This is the sentinel
// the idempotent persist step relies on.
func CountPersistedTurns(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if line == endMarker {
			count++
		}
	}
	return count
}

// parseTurnBlock extracts one turn from the lines between two end markers.
// A block without both a query and a response boundary is rejected.
func parseTurnBlock(lines []string) (Turn, bool) {
	var t Turn
	i := 0

	// Skip leading blank lines between blocks.
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}

	if i < len(lines) && strings.HasPrefix(lines[i], labelTimestamp) {
		t.Timestamp = strings.TrimPrefix(lines[i], labelTimestamp)
		i++
	}

	if i >= len(lines) || !strings.HasPrefix(lines[i], labelQuery) {
		return Turn{}, false
	}
	queryLines := []string{unescapeLine(strings.TrimPrefix(lines[i], labelQuery))}
	i++
	for i < len(lines) && lines[i] != "" {
		queryLines = append(queryLines, unescapeLine(lines[i]))
		i++
	}
	t.Query = strings.Join(queryLines, "\n")

	for i < len(lines) && lines[i] == "" {
		i++
	}

	if i >= len(lines) || !strings.HasPrefix(lines[i], labelResponse) {
		return Turn{}, false
	}
	rawResp := []string{strings.TrimPrefix(lines[i], labelResponse)}
	i++
	for ; i < len(lines); i++ {
		rawResp = append(rawResp, lines[i])
	}
	// Drop the blank padding before the marker. Unescaping happens after, so
	// content that genuinely ends in blank lines (escaped on write) survives.
	for len(rawResp) > 0 && rawResp[len(rawResp)-1] == "" {
		rawResp = rawResp[:len(rawResp)-1]
	}
	respLines := make([]string, len(rawResp))
	for j, line := range rawResp {
		respLines[j] = unescapeLine(line)
	}
	t.Response = strings.Join(respLines, "\n")

	if t.Timestamp == "" {
		t.Timestamp = "Imported"
	}

	if t.Query == "" || t.Response == "" {
		return Turn{}, false
	}
	return t, true
}

// escapeField escapes every line of a field value that would be mistaken for
// log structure: blank lines, field labels, the end marker, and lines that
// already start with the escape character.
func escapeField(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = escapeLine(line)
	}
	return strings.Join(lines, "\n")
}

func escapeLine(line string) string {
	if line == "" {
		return `\`
	}
	if strings.HasPrefix(line, `\`) || line == endMarker {
		return `\` + line
	}
	for _, label := range fieldLabels {
		if strings.HasPrefix(line, label) {
			return `\` + line
		}
	}
	return line
}

func unescapeLine(line string) string {
	if line == `\` {
		return ""
	}
	if strings.HasPrefix(line, `\`) {
		return line[1:]
	}
	return line
}
