package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/wineyard-swc/raices-assistant/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.Session, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# Sesión %s\n\n", session.ID)
	_, _ = fmt.Fprintf(w, "**Turnos:** %d\n\n", len(session.Turns))

	_, _ = fmt.Fprintf(w, "---\n\n")

	// Turns
	for i, turn := range session.Turns {
		timestamp := ""
		if turn.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", turn.Timestamp)
		}

		_, _ = fmt.Fprintf(w, "**Pregunta:**%s\n\n%s\n\n", timestamp, escapeMarkdown(turn.Query))
		_, _ = fmt.Fprintf(w, "**Respuesta:**\n\n%s\n\n", escapeMarkdown(turn.Response))

		// Horizontal rule after each turn (except the last one)
		if i < len(session.Turns)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
