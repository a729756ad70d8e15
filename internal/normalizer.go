package internal

import "encoding/json"

// Normalizer converts raw model output into the stable AssistantResponse
// envelope. Extraction and classification failures are always recovered
// locally: the worst case is a best-effort RESPUESTA_GENERAL or
// INFORMACION_INSUFICIENTE response, never an error to the caller.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize processes one raw generation result for the given artifact kind.
func (n *Normalizer) Normalize(raw, query string, kind ItemKind) *AssistantResponse {
	jsonStr, err := ExtractJSON(raw)
	if err != nil {
		LogDebug("no JSON in %s response, falling back to classification", kind)
		return n.fallback(raw, query, kind)
	}

	var payload rawPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		LogDebug("malformed JSON in %s response: %v, falling back to classification", kind, err)
		return n.fallback(raw, query, kind)
	}

	content, isList := decodeItems(payload.Content, kind)
	text := contentText(payload.Content)
	if !isList {
		if text == "" {
			text = raw
		}
		content = text
	}

	status := parseStatus(payload.Status)
	if status == "" {
		status = ClassifyContent(text, kind)
	}

	if isList {
		content = reconcileContent(content, kind)
	}

	resp := &AssistantResponse{
		Status:    status,
		Query:     query,
		Timestamp: Now(),
		Content:   content,
		Metadata:  payload.Metadata,
	}

	if status == StatusInsufficientInfo {
		missing := payload.MissingInfo
		if len(missing) == 0 {
			missing = HarvestMissingInfo(text)
		}
		resp.MissingInfo = EnsureMissingInfo(missing)
	}

	return resp
}

// fallback handles output with no parseable JSON: classify the raw text and
// harvest a missing-info list when the model asked for more details.
func (n *Normalizer) fallback(raw, query string, kind ItemKind) *AssistantResponse {
	status := ClassifyContent(raw, kind)

	resp := &AssistantResponse{
		Status:    status,
		Query:     query,
		Timestamp: Now(),
		Content:   raw,
	}

	if status == StatusInsufficientInfo {
		resp.MissingInfo = EnsureMissingInfo(HarvestMissingInfo(raw))
	}

	return resp
}

// parseStatus maps an explicit status field to the closed status set.
// Unknown values yield "" so classification decides instead.
func parseStatus(s string) Status {
	switch Status(s) {
	case StatusRequirementsGenerated, StatusEpicsGenerated, StatusStoriesGenerated,
		StatusInsufficientInfo, StatusProcessingError, StatusGeneral:
		return Status(s)
	default:
		return ""
	}
}
