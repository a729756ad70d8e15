package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Assistant is the top-level facade: it owns the stores and the generation
// pipeline and exposes the operations the HTTP server and the CLI call.
type Assistant struct {
	cfg       Config
	store     *SessionStore
	contexts  *ContextStore
	knowledge *KnowledgeStore
	pipeline  *ContentGenerator
}

// NewAssistant opens all backing stores and wires the pipeline from cfg.
// thinkingCallback may be nil.
func NewAssistant(cfg Config, thinkingCallback func(string)) (*Assistant, error) {
	store := NewSessionStore(cfg.HistoryDir, cfg.DedupeOnLoad)
	if err := store.LoadAll(); err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}

	knowledge, err := OpenKnowledgeStore(cfg.KnowledgePath)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base: %w", err)
	}

	contexts := NewContextStore(cfg.ContextPath)
	restoreArchivedContexts(store, contexts)

	generator := NewGeminiClient(cfg.APIKey, cfg.Model)
	thinking := NewThinkingSteps(thinkingCallback, cfg.ThinkingEnabled)

	return &Assistant{
		cfg:       cfg,
		store:     store,
		contexts:  contexts,
		knowledge: knowledge,
		pipeline:  NewContentGenerator(store, contexts, generator, knowledge, thinking, cfg.RetrievalK),
	}, nil
}

// NewAssistantWith wires an Assistant from explicit components. Used by
// tests and by callers that substitute the generation backend.
func NewAssistantWith(cfg Config, store *SessionStore, contexts *ContextStore, knowledge *KnowledgeStore, generator Generator, retriever Retriever) *Assistant {
	thinking := NewThinkingSteps(nil, false)
	return &Assistant{
		cfg:       cfg,
		store:     store,
		contexts:  contexts,
		knowledge: knowledge,
		pipeline:  NewContentGenerator(store, contexts, generator, retriever, thinking, cfg.RetrievalK),
	}
}

// Close releases the backing stores.
func (a *Assistant) Close() error {
	if a.knowledge != nil {
		return a.knowledge.Close()
	}
	return nil
}

// Chat answers a requirements query: the full two-call generate, normalize,
// and merge flow. It returns the session id actually used, which differs
// from the input when the input was empty or newChat was set.
func (a *Assistant) Chat(ctx context.Context, sessionID, query string, newChat bool) (string, *AssistantResponse, error) {
	return a.pipeline.GenerateRequirements(ctx, sessionID, query, newChat)
}

// GenerateEpics produces epics from a requirements description.
func (a *Assistant) GenerateEpics(ctx context.Context, sessionID, requirementsDescription string, newChat bool) (string, *AssistantResponse, error) {
	return a.pipeline.GenerateEpics(ctx, sessionID, requirementsDescription, newChat)
}

// GenerateUserStories produces user stories for the given epics.
func (a *Assistant) GenerateUserStories(ctx context.Context, sessionID string, epics []EpicItem) (string, *AssistantResponse, error) {
	return a.pipeline.GenerateUserStories(ctx, sessionID, epics)
}

// History returns the recorded turns for a session. Unknown sessions yield
// an empty history.
func (a *Assistant) History(sessionID string) []Turn {
	return a.store.History(sessionID)
}

// LastContext returns the chunks retrieved for the session's most recent
// generation, restored from the archive after a restart.
func (a *Assistant) LastContext(sessionID string) []string {
	return a.store.LastContext(sessionID)
}

// DeleteSession removes a session's memory, its history file, and its
// archived retrieval context. Deleting an unknown session succeeds.
func (a *Assistant) DeleteSession(sessionID string) error {
	if err := a.store.Delete(sessionID); err != nil {
		return err
	}
	if a.contexts != nil {
		if err := a.contexts.Delete(sessionID); err != nil {
			LogWarn("failed to drop archived context for session %s: %v", sessionID, err)
		}
	}
	return nil
}

// AddKnowledge splits content into chunks and stores them in the knowledge
// base. It returns the number of chunks added.
func (a *Assistant) AddKnowledge(ctx context.Context, source, content string) (int, error) {
	return a.knowledge.AddContent(ctx, source, content)
}

// SaveExchange indexes a finished question/answer pair into the knowledge
// base so later retrievals can surface it.
func (a *Assistant) SaveExchange(ctx context.Context, sessionID, query string, resp *AssistantResponse) error {
	text, err := resp.FormatJSON()
	if err != nil {
		return err
	}
	source := fmt.Sprintf("chat_%s_%s.txt", sessionID, uuid.NewString())
	_, err = a.knowledge.AddContent(ctx, source, labelQuery+query+"\n\n"+labelResponse+text)
	return err
}

// LearnTurn indexes one already-recorded turn into the knowledge base.
// index counts from the end when negative, Python style, so -1 is the most
// recent turn. saveAs may be empty to derive a source name.
func (a *Assistant) LearnTurn(ctx context.Context, sessionID string, index int, saveAs string) (string, int, error) {
	history := a.store.History(sessionID)
	if len(history) == 0 {
		return "", 0, ErrNoHistory
	}
	if index < 0 {
		index = len(history) + index
	}
	if index < 0 || index >= len(history) {
		return "", 0, ErrTurnOutOfRange
	}

	turn := history[index]
	if saveAs == "" {
		saveAs = fmt.Sprintf("learned_%s_%d.txt", sessionID, index)
	}
	content := labelQuery + turn.Query + "\n\n" + labelResponse + turn.Response
	added, err := a.knowledge.AddContent(ctx, saveAs, content)
	return saveAs, added, err
}

// restoreArchivedContexts reloads each known session's archived retrieval
// context after LoadAll, so history-aware generation keeps its last context
// across restarts.
func restoreArchivedContexts(store *SessionStore, contexts *ContextStore) {
	for _, id := range store.SessionIDs() {
		chunks, err := contexts.Load(id)
		if err != nil {
			LogWarn("failed to restore archived context for session %s: %v", id, err)
			continue
		}
		if len(chunks) > 0 {
			store.SetLastContext(id, chunks)
		}
	}
}
