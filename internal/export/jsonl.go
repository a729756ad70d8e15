package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/wineyard-swc/raices-assistant/internal"
)

// JSONLExporter exports sessions in JSONL format (one turn per line)
type JSONLExporter struct{}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, turn := range session.Turns {
		obj := map[string]interface{}{
			"query":    turn.Query,
			"response": turn.Response,
		}

		if turn.Timestamp != "" {
			obj["timestamp"] = turn.Timestamp
		}

		// Encode to single line
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
