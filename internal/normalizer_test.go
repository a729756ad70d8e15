package internal

import (
	"reflect"
	"testing"
)

func TestNormalize_RequirementsList(t *testing.T) {
	normalizer := NewNormalizer()

	resp := normalizer.Normalize(RequirementsPayload(2), "sistema de ventas", KindRequirement)

	if resp.Status != StatusRequirementsGenerated {
		t.Errorf("Status = %v", resp.Status)
	}
	if resp.Query != "sistema de ventas" {
		t.Errorf("Query = %q", resp.Query)
	}
	if resp.Timestamp == "" {
		t.Error("Timestamp not stamped")
	}

	items, ok := resp.Content.([]RequirementItem)
	if !ok {
		t.Fatalf("Content is %T, want []RequirementItem", resp.Content)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	// Model-suggested ids are discarded and reassigned positionally.
	if items[0].ID != "REQ-001" || items[1].ID != "REQ-002" {
		t.Errorf("IDs = %q, %q", items[0].ID, items[1].ID)
	}
}

func TestNormalize_EpicsList(t *testing.T) {
	raw := "```json\n" + `{"status": "EPICAS_GENERADAS", "content": [{"id": "e9", "title": "Inventario", "description": "Control de stock"}]}` + "\n```"

	resp := NewNormalizer().Normalize(raw, "q", KindEpic)

	if resp.Status != StatusEpicsGenerated {
		t.Errorf("Status = %v", resp.Status)
	}
	items := resp.Content.([]EpicItem)
	if items[0].ID != "EPIC-001" {
		t.Errorf("ID = %q", items[0].ID)
	}
	if items[0].RelatedRequirements == nil {
		t.Error("nil RelatedRequirements should be normalized to empty")
	}
}

func TestNormalize_ExplicitStatusWins(t *testing.T) {
	// The body talks about requirements but the model says it needs more
	// information; the explicit status is authoritative.
	raw := `{"status": "INFORMACION_INSUFICIENTE", "content": "Puedo generar requerimientos, pero faltan datos", "missing_info": ["alcance"]}`

	resp := NewNormalizer().Normalize(raw, "q", KindRequirement)

	if resp.Status != StatusInsufficientInfo {
		t.Errorf("Status = %v", resp.Status)
	}
	if !reflect.DeepEqual(resp.MissingInfo, []string{"alcance"}) {
		t.Errorf("MissingInfo = %v", resp.MissingInfo)
	}
}

func TestNormalize_UnknownStatusFallsBackToClassification(t *testing.T) {
	raw := `{"status": "ALGO_RARO", "content": "He generado los requerimientos del sistema"}`

	resp := NewNormalizer().Normalize(raw, "q", KindRequirement)

	if resp.Status != StatusRequirementsGenerated {
		t.Errorf("Status = %v, want classification to decide", resp.Status)
	}
}

func TestNormalize_NoJSONFallback(t *testing.T) {
	raw := "Necesito más información: 1. presupuesto 2. plazo"

	resp := NewNormalizer().Normalize(raw, "q", KindRequirement)

	if resp.Status != StatusInsufficientInfo {
		t.Errorf("Status = %v", resp.Status)
	}
	if resp.Content != raw {
		t.Errorf("Content = %v, want raw text preserved", resp.Content)
	}
	want := []string{"presupuesto", "plazo"}
	if !reflect.DeepEqual(resp.MissingInfo, want) {
		t.Errorf("MissingInfo = %v, want %v", resp.MissingInfo, want)
	}
}

func TestNormalize_MalformedJSONFallback(t *testing.T) {
	raw := "resultado: {esto no es json válido}"

	resp := NewNormalizer().Normalize(raw, "q", KindRequirement)

	if resp.Status != StatusGeneral {
		t.Errorf("Status = %v", resp.Status)
	}
	if resp.Content != raw {
		t.Errorf("Content = %v", resp.Content)
	}
}

func TestNormalize_InsufficientWithoutListGetsPlaceholder(t *testing.T) {
	raw := `{"status": "INFORMACION_INSUFICIENTE", "content": "Faltan datos"}`

	resp := NewNormalizer().Normalize(raw, "q", KindRequirement)

	if len(resp.MissingInfo) == 0 {
		t.Fatal("MissingInfo must never be empty for INFORMACION_INSUFICIENTE")
	}
	if resp.MissingInfo[0] != "Se requieren más detalles sobre el proyecto" {
		t.Errorf("MissingInfo = %v", resp.MissingInfo)
	}
}

func TestParseStatus(t *testing.T) {
	if got := parseStatus("EPICAS_GENERADAS"); got != StatusEpicsGenerated {
		t.Errorf("parseStatus() = %v", got)
	}
	if got := parseStatus("inventada"); got != "" {
		t.Errorf("parseStatus(unknown) = %v, want empty", got)
	}
	if got := parseStatus(""); got != "" {
		t.Errorf("parseStatus(empty) = %v, want empty", got)
	}
}
