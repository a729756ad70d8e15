package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, gen Generator) (*Server, *Assistant) {
	t.Helper()

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.SetDataDir(dir)

	store := NewSessionStore(cfg.HistoryDir, false)
	knowledge, err := OpenKnowledgeStore(cfg.KnowledgePath)
	if err != nil {
		t.Fatalf("OpenKnowledgeStore() error = %v", err)
	}
	t.Cleanup(func() { _ = knowledge.Close() })

	contexts := NewContextStore(cfg.ContextPath)
	assistant := NewAssistantWith(cfg, store, contexts, knowledge, gen, knowledge)
	return NewServer(assistant), assistant
}

func postJSON(t *testing.T, server *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestServer_Chat(t *testing.T) {
	gen := &fakeGenerator{responses: []string{RequirementsPayload(1), RequirementsPayload(1)}}
	server, _ := newTestServer(t, gen)

	rec := postJSON(t, server, "/chat", map[string]any{
		"query":    "sistema de inventario",
		"new_chat": true,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var reply struct {
		SessionID string `json:"session_id"`
		Response  struct {
			Status string `json:"status"`
		} `json:"response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.SessionID == "" {
		t.Error("no session id in reply")
	}
	if reply.Response.Status != string(StatusRequirementsGenerated) {
		t.Errorf("status = %q", reply.Response.Status)
	}
}

func TestServer_ChatValidation(t *testing.T) {
	server, _ := newTestServer(t, &fakeGenerator{})

	rec := postJSON(t, server, "/chat", map[string]any{"query": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("no es json"))
	rec2 := httptest.NewRecorder()
	server.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rec2.Code)
	}

	// Error replies still use the response envelope.
	var reply struct {
		Response struct {
			Status string `json:"status"`
		} `json:"response"`
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode error reply: %v", err)
	}
	if reply.Response.Status != string(StatusProcessingError) {
		t.Errorf("error status = %q", reply.Response.Status)
	}
}

func TestServer_ChatGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("model offline")}
	server, _ := newTestServer(t, gen)

	rec := postJSON(t, server, "/chat", map[string]any{"query": "q", "new_chat": true})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestServer_HistoryAndDelete(t *testing.T) {
	gen := &fakeGenerator{responses: []string{RequirementsPayload(1), RequirementsPayload(1)}}
	server, _ := newTestServer(t, gen)

	rec := postJSON(t, server, "/chat", map[string]any{"query": "hola", "new_chat": true})
	var reply struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}

	// Read the history back.
	req := httptest.NewRequest(http.MethodGet, "/chat/history/"+reply.SessionID, nil)
	histRec := httptest.NewRecorder()
	server.ServeHTTP(histRec, req)
	if histRec.Code != http.StatusOK {
		t.Fatalf("history status = %d", histRec.Code)
	}
	var hist struct {
		History []Turn `json:"history"`
	}
	if err := json.Unmarshal(histRec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 1 || hist.History[0].Query != "hola" {
		t.Errorf("history = %+v", hist.History)
	}

	// Delete it.
	delReq := httptest.NewRequest(http.MethodDelete, "/chat/history/"+reply.SessionID, nil)
	delRec := httptest.NewRecorder()
	server.ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", delRec.Code)
	}

	// History of a deleted session is empty, not an error.
	emptyRec := httptest.NewRecorder()
	server.ServeHTTP(emptyRec, httptest.NewRequest(http.MethodGet, "/chat/history/"+reply.SessionID, nil))
	if emptyRec.Code != http.StatusOK {
		t.Errorf("history after delete status = %d", emptyRec.Code)
	}
}

func TestServer_GenerateEpics(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"```json\n" + `{"status": "EPICAS_GENERADAS", "content": [{"id": "1", "title": "Ventas", "description": "d"}]}` + "\n```",
	}}
	server, _ := newTestServer(t, gen)

	rec := postJSON(t, server, "/generate-epics", map[string]any{
		"requirements": "- (REQ-001) Login: acceso",
		"new_chat":     true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "EPIC-001") {
		t.Errorf("body = %s", rec.Body.String())
	}

	// Missing requirements is a validation error.
	rec = postJSON(t, server, "/generate-epics", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServer_GenerateUserStories(t *testing.T) {
	gen := &fakeGenerator{responses: []string{storyBatchPayload("Historia A")}}
	server, _ := newTestServer(t, gen)

	rec := postJSON(t, server, "/generate-user-stories", map[string]any{
		"epics": []map[string]any{
			{"id": "EPIC-001", "title": "Ventas", "description": "d"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "US-001") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = postJSON(t, server, "/generate-user-stories", map[string]any{"epics": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty epics: status = %d, want 400", rec.Code)
	}
}

func TestServer_AddKnowledge(t *testing.T) {
	server, _ := newTestServer(t, &fakeGenerator{})

	rec := postJSON(t, server, "/knowledge/add", map[string]any{
		"source":  "manual",
		"content": "El inventario se actualiza con cada venta.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var reply struct {
		ChunksAdded int `json:"chunks_added"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.ChunksAdded != 1 {
		t.Errorf("chunks_added = %d, want 1", reply.ChunksAdded)
	}

	rec = postJSON(t, server, "/knowledge/add", map[string]any{"source": "manual"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty content: status = %d, want 400", rec.Code)
	}
}

func TestServer_ChatSavesToKnowledgeBase(t *testing.T) {
	gen := &fakeGenerator{responses: []string{RequirementsPayload(1), RequirementsPayload(1)}}
	server, assistant := newTestServer(t, gen)
	ctx := context.Background()

	rec := postJSON(t, server, "/chat", map[string]any{
		"query":                  "sistema de inventario",
		"new_chat":               true,
		"save_to_knowledge_base": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var reply struct {
		SavedToKB bool `json:"saved_to_kb"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !reply.SavedToKB {
		t.Error("saved_to_kb = false, want true")
	}

	count, err := assistant.knowledge.ChunkCount(ctx)
	if err != nil {
		t.Fatalf("ChunkCount() error = %v", err)
	}
	if count == 0 {
		t.Error("exchange was not indexed into the knowledge base")
	}
}

func TestServer_LearnFromResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []string{RequirementsPayload(1), RequirementsPayload(1)}}
	server, assistant := newTestServer(t, gen)
	ctx := context.Background()

	rec := postJSON(t, server, "/chat", map[string]any{"query": "hola", "new_chat": true})
	var chat struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode chat reply: %v", err)
	}

	// Default index learns the most recent turn.
	rec = postJSON(t, server, "/knowledge/learn-from-response", map[string]any{
		"session_id": chat.SessionID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var reply struct {
		File        string `json:"file"`
		ChunksAdded int    `json:"chunks_added"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.File != "learned_"+chat.SessionID+"_0.txt" {
		t.Errorf("file = %q", reply.File)
	}
	if reply.ChunksAdded == 0 {
		t.Error("chunks_added = 0")
	}
	count, err := assistant.knowledge.ChunkCount(ctx)
	if err != nil {
		t.Fatalf("ChunkCount() error = %v", err)
	}
	if count != reply.ChunksAdded {
		t.Errorf("knowledge base holds %d chunks, reply said %d", count, reply.ChunksAdded)
	}

	// Unknown session has no history.
	rec = postJSON(t, server, "/knowledge/learn-from-response", map[string]any{
		"session_id": "desconocida",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", rec.Code)
	}

	// Out-of-range index is a client error.
	rec = postJSON(t, server, "/knowledge/learn-from-response", map[string]any{
		"session_id":     chat.SessionID,
		"response_index": 5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range index: status = %d, want 400", rec.Code)
	}

	// Missing session id is a validation error.
	rec = postJSON(t, server, "/knowledge/learn-from-response", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing session id: status = %d, want 400", rec.Code)
	}
}

func TestServer_HistoryIncludesLastContext(t *testing.T) {
	gen := &fakeGenerator{responses: []string{RequirementsPayload(1), RequirementsPayload(1)}}
	server, _ := newTestServer(t, gen)

	rec := postJSON(t, server, "/knowledge/add", map[string]any{
		"source":  "manual",
		"content": "El inventario se sincroniza cada noche.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("knowledge add status = %d", rec.Code)
	}

	rec = postJSON(t, server, "/chat", map[string]any{"query": "inventario", "new_chat": true})
	var chat struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode chat reply: %v", err)
	}

	histRec := httptest.NewRecorder()
	server.ServeHTTP(histRec, httptest.NewRequest(http.MethodGet, "/chat/history/"+chat.SessionID, nil))
	var hist struct {
		LastContext []string `json:"last_context"`
	}
	if err := json.Unmarshal(histRec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.LastContext) == 0 {
		t.Error("last_context missing from history reply")
	}
}

func TestServer_Health(t *testing.T) {
	server, _ := newTestServer(t, &fakeGenerator{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
