package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the canonical classification of a normalized assistant response.
// The three *_GENERADAS values are the per-artifact success statuses; the
// remaining three apply to every artifact kind.
type Status string

const (
	StatusRequirementsGenerated Status = "REQUERIMIENTOS_GENERADOS"
	StatusEpicsGenerated        Status = "EPICAS_GENERADAS"
	StatusStoriesGenerated      Status = "HISTORIAS_GENERADAS"
	StatusInsufficientInfo      Status = "INFORMACION_INSUFICIENTE"
	StatusProcessingError       Status = "ERROR_PROCESAMIENTO"
	StatusGeneral               Status = "RESPUESTA_GENERAL"
)

// Severity orders statuses for merge propagation: an error in either half of
// a merged generation dominates a success, and missing information dominates
// a plain success as well.
func (s Status) Severity() int {
	switch s {
	case StatusProcessingError:
		return 3
	case StatusInsufficientInfo:
		return 2
	case StatusRequirementsGenerated, StatusEpicsGenerated, StatusStoriesGenerated:
		return 1
	default:
		return 0
	}
}

// IsGenerated reports whether the status is one of the success statuses.
func (s Status) IsGenerated() bool {
	return s.Severity() == 1
}

// ItemKind selects the artifact variant a generation call produces.
type ItemKind int

const (
	KindRequirement ItemKind = iota
	KindEpic
	KindUserStory
)

// String returns the kind name used in logs and prompt selection.
func (k ItemKind) String() string {
	switch k {
	case KindRequirement:
		return "requirements"
	case KindEpic:
		return "epics"
	case KindUserStory:
		return "user_stories"
	default:
		return "unknown"
	}
}

// GeneratedStatus returns the success status for this artifact kind.
func (k ItemKind) GeneratedStatus() Status {
	switch k {
	case KindEpic:
		return StatusEpicsGenerated
	case KindUserStory:
		return StatusStoriesGenerated
	default:
		return StatusRequirementsGenerated
	}
}

// Category and priority literals follow the upstream product vocabulary.
const (
	CategoryFunctional    = "Funcional"
	CategoryNonFunctional = "No Funcional"

	PriorityHigh   = "Alta"
	PriorityMedium = "Media"
	PriorityLow    = "Baja"
)

// RequirementItem is one generated functional or non-functional requirement.
type RequirementItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// RequirementRef is a cross-reference from an epic to a requirement. The
// referenced id is preserved verbatim; existence is not validated.
type RequirementRef struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// EpicItem is one generated epic with its related requirements.
type EpicItem struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	RelatedRequirements []RequirementRef `json:"related_requirements"`
}

// UserStoryItem is one generated user story assigned to an epic.
type UserStoryItem struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Priority           string   `json:"priority,omitempty"`
	AssignedEpic       string   `json:"assigned_epic,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

// RequirementBuckets is the merged-requirements content shape: deduplicated
// items partitioned into functional and non-functional lists.
type RequirementBuckets struct {
	Functional    []RequirementItem `json:"funcionales"`
	NonFunctional []RequirementItem `json:"no_funcionales"`
}

// AssistantResponse is the normalized envelope returned to callers and
// persisted into the session log. Content holds either free text (string),
// an item list, or RequirementBuckets after a merge.
type AssistantResponse struct {
	Status      Status         `json:"status"`
	Query       string         `json:"query"`
	Timestamp   string         `json:"timestamp"`
	Content     any            `json:"content"`
	MissingInfo []string       `json:"missing_info"`
	Metadata    map[string]any `json:"metadata"`
}

// TimestampLayout is the wall-clock format stamped on responses and turns.
const TimestampLayout = "2006-01-02 15:04:05"

// Now returns the current wall-clock string in the response format.
func Now() string {
	return time.Now().Format(TimestampLayout)
}

// FormatJSON renders the response as the indented JSON returned to callers.
func (r *AssistantResponse) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(data), nil
}

// rawPayload is the tolerant decode target for model output: status and
// content may be absent, mistyped, or partially filled.
type rawPayload struct {
	Status      string          `json:"status"`
	Query       string          `json:"query"`
	Content     json.RawMessage `json:"content"`
	MissingInfo []string        `json:"missing_info"`
	Metadata    map[string]any  `json:"metadata"`
}

// decodeItems decodes a raw content array into the items for the given kind.
// A content value that is not an array yields (nil, false).
func decodeItems(content json.RawMessage, kind ItemKind) (any, bool) {
	if len(content) == 0 {
		return nil, false
	}
	switch kind {
	case KindEpic:
		var items []EpicItem
		if err := json.Unmarshal(content, &items); err != nil {
			return nil, false
		}
		return items, true
	case KindUserStory:
		var items []UserStoryItem
		if err := json.Unmarshal(content, &items); err != nil {
			return nil, false
		}
		return items, true
	default:
		var items []RequirementItem
		if err := json.Unmarshal(content, &items); err != nil {
			return nil, false
		}
		return items, true
	}
}

// contentText extracts the free-text form of a raw content value, falling
// back to the raw JSON when it is not a plain string.
func contentText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	return string(content)
}
