package internal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultChunkSize bounds how many input items go into one generation
// prompt for the chunked epic/user-story flows.
const DefaultChunkSize = 5

// mergeInput is the tolerant decode target for one half of a requirements
// merge. Content stays raw because an insufficient or failed half carries
// plain text there instead of an item list; its status and missing_info must
// still reach the merge.
type mergeInput struct {
	Status      string          `json:"status"`
	Query       string          `json:"query"`
	Content     json.RawMessage `json:"content"`
	MissingInfo []string        `json:"missing_info"`
}

// items decodes the half's content as a requirement list. Non-list content
// yields no items without invalidating the rest of the half.
func (in mergeInput) items() []RequirementItem {
	var items []RequirementItem
	if err := json.Unmarshal(in.Content, &items); err != nil {
		return nil
	}
	return items
}

// MergeRequirements combines the functional and non-functional generation
// results into one response. Items are deduplicated by identifier (first
// occurrence wins) and partitioned into functional/non-functional buckets by
// the -NF- infix. The combined status is the most severe of the two input
// statuses, and their missing-info lists are unioned, so an insufficient or
// failed half is never silently reported as success.
func MergeRequirements(funcRaw, nonFuncRaw, query string) *AssistantResponse {
	fIn := parseMergeInput(funcRaw)
	nfIn := parseMergeInput(nonFuncRaw)

	seen := make(map[string]bool)
	buckets := RequirementBuckets{
		Functional:    []RequirementItem{},
		NonFunctional: []RequirementItem{},
	}

	for _, item := range append(fIn.items(), nfIn.items()...) {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true

		if strings.Contains(item.ID, nonFunctionalIDInfix) {
			item.Category = CategoryNonFunctional
			buckets.NonFunctional = append(buckets.NonFunctional, item)
		} else {
			item.Category = CategoryFunctional
			buckets.Functional = append(buckets.Functional, item)
		}
	}

	status := mergeStatus(parseStatus(fIn.Status), parseStatus(nfIn.Status))

	if query == "" {
		if fIn.Query != "" {
			query = fIn.Query
		} else {
			query = nfIn.Query
		}
	}

	resp := &AssistantResponse{
		Status:    status,
		Query:     query,
		Timestamp: Now(),
		Content:   buckets,
	}

	if status == StatusInsufficientInfo {
		resp.MissingInfo = EnsureMissingInfo(unionStrings(fIn.MissingInfo, nfIn.MissingInfo))
	}

	return resp
}

func parseMergeInput(raw string) mergeInput {
	var in mergeInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		LogDebug("merge input did not parse, substituting empty item list: %v", err)
		return mergeInput{}
	}
	return in
}

// mergeStatus picks the most severe status among the inputs; when neither
// half reports one, the merge counts as a successful requirements result.
func mergeStatus(statuses ...Status) Status {
	merged := StatusRequirementsGenerated
	for _, s := range statuses {
		if s == "" {
			continue
		}
		if s.Severity() > merged.Severity() {
			merged = s
		}
	}
	return merged
}

func unionStrings(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// ChunkEpics splits an epic list into fixed-size batches to keep individual
// generation prompts small.
func ChunkEpics(epics []EpicItem, size int) [][]EpicItem {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]EpicItem
	for start := 0; start < len(epics); start += size {
		end := start + size
		if end > len(epics) {
			end = len(epics)
		}
		chunks = append(chunks, epics[start:end])
	}
	return chunks
}

// MergeStoryChunks concatenates batch results in batch order and runs one
// reconciliation pass over the full list, so identifiers stay sequential and
// collision-free across batch boundaries.
func MergeStoryChunks(batches [][]UserStoryItem) []UserStoryItem {
	var all []UserStoryItem
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return ReassignStoryIDs(all)
}

// FormatRequirementsForPrompt renders a requirement list as the plain-text
// enumeration fed back into the epic generation prompt.
func FormatRequirementsForPrompt(items []RequirementItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- (%s) %s: %s\n", item.ID, item.Title, item.Description)
	}
	return b.String()
}

// FormatEpicGroupInput renders one epic batch as the plain-text block fed
// into the user-story generation prompt.
func FormatEpicGroupInput(group []EpicItem) string {
	var b strings.Builder
	for _, epic := range group {
		fmt.Fprintf(&b, "EPIC: %s (%s)\nDescripción: %s\nRequerimientos:\n", epic.Title, epic.ID, epic.Description)
		for _, ref := range epic.RelatedRequirements {
			fmt.Fprintf(&b, "- %s: %s\n", ref.ID, ref.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
