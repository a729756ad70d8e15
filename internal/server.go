package internal

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Server exposes the assistant over HTTP.
type Server struct {
	assistant *Assistant
	mux       *http.ServeMux
}

// NewServer builds the HTTP surface over an assistant.
func NewServer(assistant *Assistant) *Server {
	s := &Server{
		assistant: assistant,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /chat/history/{session_id}", s.handleHistory)
	s.mux.HandleFunc("DELETE /chat/history/{session_id}", s.handleDeleteHistory)
	s.mux.HandleFunc("POST /generate-epics", s.handleGenerateEpics)
	s.mux.HandleFunc("POST /generate-user-stories", s.handleGenerateUserStories)
	s.mux.HandleFunc("POST /knowledge/add", s.handleAddKnowledge)
	s.mux.HandleFunc("POST /knowledge/learn-from-response", s.handleLearnFromResponse)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	LogInfo("listening on %s", addr)
	return http.ListenAndServe(addr, s)
}

type chatRequest struct {
	Query           string `json:"query"`
	SessionID       string `json:"session_id"`
	NewChat         bool   `json:"new_chat"`
	SaveToKnowledge bool   `json:"save_to_knowledge_base"`
}

type epicsRequest struct {
	Requirements string `json:"requirements"`
	SessionID    string `json:"session_id"`
	NewChat      bool   `json:"new_chat"`
}

type storiesRequest struct {
	Epics     []EpicItem `json:"epics"`
	SessionID string     `json:"session_id"`
}

type knowledgeRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

type learnRequest struct {
	SessionID     string `json:"session_id"`
	ResponseIndex *int   `json:"response_index"`
	SaveAs        string `json:"save_as"`
}

type chatReply struct {
	SessionID string             `json:"session_id"`
	Response  *AssistantResponse `json:"response"`
	SavedToKB bool               `json:"saved_to_kb,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query es obligatorio")
		return
	}

	sessionID, resp, err := s.assistant.Chat(r.Context(), req.SessionID, req.Query, req.NewChat)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	savedToKB := false
	if req.SaveToKnowledge {
		if err := s.assistant.SaveExchange(r.Context(), sessionID, req.Query, resp); err != nil {
			LogWarn("failed to save exchange to knowledge base for session %s: %v", sessionID, err)
		} else {
			savedToKB = true
		}
	}

	writeJSON(w, http.StatusOK, chatReply{SessionID: sessionID, Response: resp, SavedToKB: savedToKB})
}

func (s *Server) handleGenerateEpics(w http.ResponseWriter, r *http.Request) {
	var req epicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}
	if req.Requirements == "" {
		s.writeError(w, http.StatusBadRequest, "requirements es obligatorio")
		return
	}

	sessionID, resp, err := s.assistant.GenerateEpics(r.Context(), req.SessionID, req.Requirements, req.NewChat)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatReply{SessionID: sessionID, Response: resp})
}

func (s *Server) handleGenerateUserStories(w http.ResponseWriter, r *http.Request) {
	var req storiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}
	if len(req.Epics) == 0 {
		s.writeError(w, http.StatusBadRequest, "epics es obligatorio")
		return
	}

	sessionID, resp, err := s.assistant.GenerateUserStories(r.Context(), req.SessionID, req.Epics)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatReply{SessionID: sessionID, Response: resp})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	history := s.assistant.History(sessionID)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   sessionID,
		"history":      history,
		"last_context": s.assistant.LastContext(sessionID),
	})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := s.assistant.DeleteSession(sessionID); err != nil {
		s.writeError(w, http.StatusInternalServerError, "no se pudo eliminar la sesión")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"deleted":    true,
	})
}

func (s *Server) handleAddKnowledge(w http.ResponseWriter, r *http.Request) {
	var req knowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}
	if req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content es obligatorio")
		return
	}

	added, err := s.assistant.AddKnowledge(r.Context(), req.Source, req.Content)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "no se pudo indexar el contenido")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":       req.Source,
		"chunks_added": added,
	})
}

func (s *Server) handleLearnFromResponse(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id es obligatorio")
		return
	}

	index := -1
	if req.ResponseIndex != nil {
		index = *req.ResponseIndex
	}

	source, added, err := s.assistant.LearnTurn(r.Context(), req.SessionID, index, req.SaveAs)
	switch {
	case errors.Is(err, ErrNoHistory):
		s.writeError(w, http.StatusNotFound, "no hay historial para esta sesión")
		return
	case errors.Is(err, ErrTurnOutOfRange):
		s.writeError(w, http.StatusBadRequest, "índice de respuesta fuera de rango")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "no se pudo indexar la respuesta")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file":         source,
		"chunks_added": added,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// writeGenerationError maps a pipeline failure onto the response envelope so
// clients always see the same shape.
func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	LogError("generation failed: %v", err)
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		s.writeError(w, http.StatusBadGateway, "error al generar la respuesta")
		return
	}
	s.writeError(w, http.StatusInternalServerError, "error interno")
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, chatReply{Response: &AssistantResponse{
		Status:    StatusProcessingError,
		Timestamp: Now(),
		Content:   message,
	}})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		LogError("failed to encode response: %v", err)
	}
}
