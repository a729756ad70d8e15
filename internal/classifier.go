package internal

import (
	"regexp"
	"strings"
)

// Keyword scans run over lower-cased content in fixed priority order:
// insufficient-information phrases first, then processing errors, then the
// domain nouns that indicate a generated artifact list.
var (
	insufficientPhrases = []string{
		"información insuficiente",
		"informacion insuficiente",
		"necesito más información",
		"necesito mas informacion",
	}

	generatedKeywords = []string{
		"requerimiento",
		"requisito",
		"épica",
		"epica",
		"historia de usuario",
	}
)

// ClassifyContent assigns a status to unstructured (or partially structured)
// response text for the given artifact kind.
func ClassifyContent(text string, kind ItemKind) Status {
	lower := strings.ToLower(text)

	for _, phrase := range insufficientPhrases {
		if strings.Contains(lower, phrase) {
			return StatusInsufficientInfo
		}
	}

	if strings.Contains(lower, "error") {
		return StatusProcessingError
	}

	for _, keyword := range generatedKeywords {
		if strings.Contains(lower, keyword) {
			return kind.GeneratedStatus()
		}
	}

	return StatusGeneral
}

var (
	missingTailPattern = regexp.MustCompile(`(?is)(?:necesito|falta)[\s\S]*?(?:información|informacion|detalles)([\s\S]*?)(?:para generar|$)`)
	numberedMarker     = regexp.MustCompile(`\d+[.)]`)
	numberedSplit      = regexp.MustCompile(`\s*\d+[.)]\s*`)
	bulletLinePattern  = regexp.MustCompile(`(?m)^\s*(?:\d+\.|[-*•])\s*(.+?)\s*$`)
	sentenceSplit      = regexp.MustCompile(`[.;\n]`)
)

// HarvestMissingInfo scans raw response text for the list of missing details
// the model asked for. It prefers the span following a "necesito/falta ...
// información/detalles" phrase, then looks for numbered items, bulleted
// lines, and finally a sentence split of the matched span. Returns nil when
// nothing list-like is found.
func HarvestMissingInfo(text string) []string {
	lower := strings.ToLower(text)

	region := lower
	tailMatched := false
	if m := missingTailPattern.FindStringSubmatch(lower); m != nil {
		tailMatched = true
		region = m[1]
	}

	if numberedMarker.MatchString(region) {
		if items := cleanItems(numberedSplit.Split(region, -1)); len(items) > 0 {
			return items
		}
	}

	if matches := bulletLinePattern.FindAllStringSubmatch(region, -1); len(matches) > 0 {
		var items []string
		for _, m := range matches {
			items = append(items, m[1])
		}
		if items = cleanItems(items); len(items) > 0 {
			return items
		}
	}

	// Sentence split only makes sense inside the matched phrase tail;
	// applied to arbitrary prose it would return the whole response.
	if tailMatched {
		if items := cleanItems(sentenceSplit.Split(region, -1)); len(items) > 0 {
			return items
		}
	}

	return nil
}

// EnsureMissingInfo guarantees the INFORMACION_INSUFICIENTE invariant: the
// missing-info list is never empty once the status is assigned.
func EnsureMissingInfo(items []string) []string {
	if len(items) > 0 {
		return items
	}
	return []string{"Se requieren más detalles sobre el proyecto"}
}

func cleanItems(raw []string) []string {
	var items []string
	for _, item := range raw {
		item = strings.TrimSpace(item)
		item = strings.TrimLeft(item, ":;,-• \t")
		item = strings.TrimRight(item, ".,;: \t")
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
