package internal

import (
	"fmt"
	"strings"
)

// Identifier prefixes for generated artifacts.
const (
	PrefixRequirement    = "REQ"
	PrefixNonFunctional  = "REQ-NF"
	PrefixEpic           = "EPIC"
	PrefixUserStory      = "US"
	nonFunctionalIDInfix = "-NF-"
)

// ReassignRequirementIDs re-derives requirement identifiers positionally.
// Identifiers suggested by the model are discarded; each item gets
// REQ-### or REQ-NF-### with the ordinal taken from its position within its
// own category bucket, not a global counter. An ambiguous or missing
// category is treated as functional. The operation is idempotent because it
// never reads the existing id.
func ReassignRequirementIDs(items []RequirementItem) []RequirementItem {
	out := make([]RequirementItem, len(items))
	funcOrd, nonFuncOrd := 0, 0
	for i, item := range items {
		if isNonFunctionalCategory(item.Category) {
			nonFuncOrd++
			item.ID = fmt.Sprintf("%s-%03d", PrefixNonFunctional, nonFuncOrd)
		} else {
			funcOrd++
			item.ID = fmt.Sprintf("%s-%03d", PrefixRequirement, funcOrd)
		}
		out[i] = item
	}
	return out
}

// ReassignEpicIDs re-derives epic identifiers as EPIC-### from position.
// Related-requirement references are preserved verbatim; a nil reference
// list is normalized to an empty one.
func ReassignEpicIDs(items []EpicItem) []EpicItem {
	out := make([]EpicItem, len(items))
	for i, item := range items {
		item.ID = fmt.Sprintf("%s-%03d", PrefixEpic, i+1)
		if item.RelatedRequirements == nil {
			item.RelatedRequirements = []RequirementRef{}
		}
		out[i] = item
	}
	return out
}

// ReassignStoryIDs re-derives user-story identifiers as US-### from
// position. The assigned_epic reference is preserved verbatim; a nil
// acceptance-criteria list is normalized to an empty one.
func ReassignStoryIDs(items []UserStoryItem) []UserStoryItem {
	out := make([]UserStoryItem, len(items))
	for i, item := range items {
		item.ID = fmt.Sprintf("%s-%03d", PrefixUserStory, i+1)
		if item.AcceptanceCriteria == nil {
			item.AcceptanceCriteria = []string{}
		}
		out[i] = item
	}
	return out
}

// isNonFunctionalCategory decides the prefix branch from the category field.
// Matches "No Funcional" and abbreviated "NF" spellings case-insensitively.
func isNonFunctionalCategory(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	if strings.Contains(c, "no funcional") || strings.Contains(c, "non functional") || strings.Contains(c, "non-functional") {
		return true
	}
	return c == "nf" || strings.HasPrefix(c, "nf ") || strings.HasSuffix(c, " nf")
}

// reconcileContent applies positional reassignment to a decoded content
// list for the given kind.
func reconcileContent(content any, kind ItemKind) any {
	switch kind {
	case KindEpic:
		if items, ok := content.([]EpicItem); ok {
			return ReassignEpicIDs(items)
		}
	case KindUserStory:
		if items, ok := content.([]UserStoryItem); ok {
			return ReassignStoryIDs(items)
		}
	default:
		if items, ok := content.([]RequirementItem); ok {
			return ReassignRequirementIDs(items)
		}
	}
	return content
}
