package internal

import (
	"strings"
	"testing"
)

func mergeHalf(status string, items ...RequirementItem) string {
	resp := AssistantResponse{
		Status:  Status(status),
		Content: items,
	}
	text, _ := resp.FormatJSON()
	return text
}

func TestMergeRequirements(t *testing.T) {
	funcRaw := mergeHalf("REQUERIMIENTOS_GENERADOS",
		RequirementItem{ID: "REQ-001", Title: "Login"},
		RequirementItem{ID: "REQ-002", Title: "Reportes"},
	)
	nonFuncRaw := mergeHalf("REQUERIMIENTOS_GENERADOS",
		RequirementItem{ID: "REQ-NF-001", Title: "Rendimiento"},
	)

	resp := MergeRequirements(funcRaw, nonFuncRaw, "sistema de inventario")

	if resp.Status != StatusRequirementsGenerated {
		t.Errorf("Status = %v", resp.Status)
	}
	if resp.Query != "sistema de inventario" {
		t.Errorf("Query = %q", resp.Query)
	}

	buckets, ok := resp.Content.(RequirementBuckets)
	if !ok {
		t.Fatalf("Content is %T, want RequirementBuckets", resp.Content)
	}
	if len(buckets.Functional) != 2 || len(buckets.NonFunctional) != 1 {
		t.Fatalf("bucket sizes = %d/%d, want 2/1", len(buckets.Functional), len(buckets.NonFunctional))
	}
	if buckets.Functional[0].Category != CategoryFunctional {
		t.Errorf("functional category = %q", buckets.Functional[0].Category)
	}
	if buckets.NonFunctional[0].Category != CategoryNonFunctional {
		t.Errorf("non-functional category = %q", buckets.NonFunctional[0].Category)
	}
	if resp.MissingInfo != nil {
		t.Errorf("MissingInfo = %v, want nil on success", resp.MissingInfo)
	}
}

func TestMergeRequirements_DedupFirstWins(t *testing.T) {
	funcRaw := mergeHalf("REQUERIMIENTOS_GENERADOS",
		RequirementItem{ID: "REQ-001", Title: "Primera"},
	)
	nonFuncRaw := mergeHalf("REQUERIMIENTOS_GENERADOS",
		RequirementItem{ID: "REQ-001", Title: "Duplicada"},
		RequirementItem{ID: "", Title: "Sin id"},
	)

	resp := MergeRequirements(funcRaw, nonFuncRaw, "q")
	buckets := resp.Content.(RequirementBuckets)

	if len(buckets.Functional) != 1 {
		t.Fatalf("functional size = %d, want 1", len(buckets.Functional))
	}
	if buckets.Functional[0].Title != "Primera" {
		t.Errorf("dedup kept %q, want first occurrence", buckets.Functional[0].Title)
	}
	if len(buckets.NonFunctional) != 0 {
		t.Errorf("non-functional size = %d, want 0", len(buckets.NonFunctional))
	}
}

func TestMergeRequirements_SeverityPropagates(t *testing.T) {
	funcRaw := mergeHalf("REQUERIMIENTOS_GENERADOS",
		RequirementItem{ID: "REQ-001", Title: "Login"},
	)
	nfResp := AssistantResponse{
		Status:      StatusInsufficientInfo,
		Content:     []RequirementItem{},
		MissingInfo: []string{"presupuesto"},
	}
	nonFuncRaw, _ := nfResp.FormatJSON()

	resp := MergeRequirements(funcRaw, nonFuncRaw, "q")

	if resp.Status != StatusInsufficientInfo {
		t.Errorf("Status = %v, want insufficient to dominate", resp.Status)
	}
	if len(resp.MissingInfo) != 1 || resp.MissingInfo[0] != "presupuesto" {
		t.Errorf("MissingInfo = %v", resp.MissingInfo)
	}
}

func TestMergeRequirements_InsufficientHalfWithTextContent(t *testing.T) {
	// The realistic insufficient half comes out of Normalize with plain text
	// as content, not an item list. Its status and missing info must survive
	// the merge regardless of the content shape.
	funcRaw := mergeHalf("REQUERIMIENTOS_GENERADOS",
		RequirementItem{ID: "REQ-001", Title: "Login"},
	)
	nfResp := NewNormalizer().Normalize(
		"Necesito más información: 1. presupuesto 2. plazo", "q", KindRequirement)
	if nfResp.Status != StatusInsufficientInfo {
		t.Fatalf("fixture status = %v, want insufficient", nfResp.Status)
	}
	nonFuncRaw, err := nfResp.FormatJSON()
	if err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}

	resp := MergeRequirements(funcRaw, nonFuncRaw, "q")

	if resp.Status != StatusInsufficientInfo {
		t.Errorf("Status = %v, want insufficient to dominate", resp.Status)
	}
	if len(resp.MissingInfo) != 2 || resp.MissingInfo[0] != "presupuesto" || resp.MissingInfo[1] != "plazo" {
		t.Errorf("MissingInfo = %v, want [presupuesto plazo]", resp.MissingInfo)
	}

	// The functional half's items still come through.
	buckets := resp.Content.(RequirementBuckets)
	if len(buckets.Functional) != 1 || len(buckets.NonFunctional) != 0 {
		t.Errorf("bucket sizes = %d/%d, want 1/0", len(buckets.Functional), len(buckets.NonFunctional))
	}
}

func TestMergeRequirements_MalformedHalf(t *testing.T) {
	funcRaw := mergeHalf("REQUERIMIENTOS_GENERADOS",
		RequirementItem{ID: "REQ-001", Title: "Login"},
	)

	resp := MergeRequirements(funcRaw, "not json at all", "q")
	buckets := resp.Content.(RequirementBuckets)

	if len(buckets.Functional) != 1 || len(buckets.NonFunctional) != 0 {
		t.Errorf("bucket sizes = %d/%d, want 1/0", len(buckets.Functional), len(buckets.NonFunctional))
	}
	if resp.Status != StatusRequirementsGenerated {
		t.Errorf("Status = %v", resp.Status)
	}
}

func TestChunkEpics(t *testing.T) {
	epics := make([]EpicItem, 12)
	chunks := ChunkEpics(epics, 5)

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 5 || len(chunks[1]) != 5 || len(chunks[2]) != 2 {
		t.Errorf("chunk sizes = %d/%d/%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}

	if got := ChunkEpics(nil, 5); got != nil {
		t.Errorf("ChunkEpics(nil) = %v, want nil", got)
	}

	// Invalid size falls back to the default.
	if got := ChunkEpics(epics, 0); len(got) != 3 {
		t.Errorf("ChunkEpics(size=0) produced %d chunks", len(got))
	}
}

func TestMergeStoryChunks(t *testing.T) {
	batches := [][]UserStoryItem{
		{{ID: "US-001", Title: "A"}, {ID: "US-002", Title: "B"}},
		{{ID: "US-001", Title: "C"}},
	}

	got := MergeStoryChunks(batches)

	if len(got) != 3 {
		t.Fatalf("merged size = %d, want 3", len(got))
	}
	// Per-batch identifiers collide; one global pass makes them sequential.
	wantIDs := []string{"US-001", "US-002", "US-003"}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("story %d: ID = %q, want %q", i, got[i].ID, want)
		}
	}
	if got[2].Title != "C" {
		t.Error("batch order not preserved")
	}
}

func TestFormatRequirementsForPrompt(t *testing.T) {
	text := FormatRequirementsForPrompt([]RequirementItem{
		{ID: "REQ-001", Title: "Login", Description: "Autenticación de usuarios"},
	})
	if !strings.Contains(text, "(REQ-001) Login: Autenticación de usuarios") {
		t.Errorf("unexpected rendering: %q", text)
	}
}

func TestFormatEpicGroupInput(t *testing.T) {
	text := FormatEpicGroupInput([]EpicItem{
		{
			ID:          "EPIC-001",
			Title:       "Gestión de usuarios",
			Description: "Altas, bajas y permisos",
			RelatedRequirements: []RequirementRef{
				{ID: "REQ-001", Description: "Login"},
			},
		},
	})

	if !strings.Contains(text, "EPIC: Gestión de usuarios (EPIC-001)") {
		t.Errorf("missing epic header: %q", text)
	}
	if !strings.Contains(text, "- REQ-001: Login") {
		t.Errorf("missing requirement ref: %q", text)
	}
}
