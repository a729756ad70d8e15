package internal

import (
	"context"
	"strings"
	"time"
)

// Generator is the opaque completion capability: given a system instruction
// and a user message, produce text. Implementations wrap whatever model
// backs the deployment.
type Generator interface {
	Generate(ctx context.Context, systemMessage, userMessage string) (string, error)
}

// Retriever is the opaque similarity-retrieval capability: given a query,
// return the top-k relevant text chunks in relevance order.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// DefaultRetrievalK is how many chunks each generation call retrieves.
const DefaultRetrievalK = 5

// ContentGenerator orchestrates one request: resolve the session, retrieve
// context, call the generation capability (possibly several times), feed raw
// output through normalization, merge partial results, and record the final
// turn. Generation and retrieval failures are the only hard errors; a failed
// save never blocks returning the answer.
type ContentGenerator struct {
	store      *SessionStore
	contexts   *ContextStore
	generator  Generator
	retriever  Retriever
	normalizer *Normalizer
	thinking   *ThinkingSteps
	retrievalK int
}

// NewContentGenerator wires the orchestration pipeline. contexts may be nil
// when no durable context archive is configured; thinking may be nil to
// disable pacing entirely.
func NewContentGenerator(store *SessionStore, contexts *ContextStore, generator Generator, retriever Retriever, thinking *ThinkingSteps, retrievalK int) *ContentGenerator {
	if retrievalK <= 0 {
		retrievalK = DefaultRetrievalK
	}
	if thinking == nil {
		thinking = NewThinkingSteps(nil, false)
	}
	return &ContentGenerator{
		store:      store,
		contexts:   contexts,
		generator:  generator,
		retriever:  retriever,
		normalizer: NewNormalizer(),
		thinking:   thinking,
		retrievalK: retrievalK,
	}
}

// GenerateRequirements runs the two-call requirements flow: one functional
// and one non-functional generation, issued sequentially, each normalized
// and reconciled, then merged into one bucketed response. The merged answer
// becomes the session's new turn.
func (g *ContentGenerator) GenerateRequirements(ctx context.Context, sessionID, query string, newChat bool) (string, *AssistantResponse, error) {
	sessionID = g.resolveSession(sessionID, newChat)

	g.thinking.Step(ctx, "Analizando la consulta", 1500*time.Millisecond)

	fResp, fRaw, err := g.generateOne(ctx, sessionID, query, FunctionalRequirementsPrompt, KindRequirement, newChat)
	if err != nil {
		return sessionID, nil, err
	}
	nfResp, nfRaw, err := g.generateOne(ctx, sessionID, query, NonFunctionalRequirementsPrompt, KindRequirement, newChat)
	if err != nil {
		return sessionID, nil, err
	}

	fJSON, err := fResp.FormatJSON()
	if err != nil {
		return sessionID, nil, &GenerationError{Kind: KindRequirement, Err: err}
	}
	nfJSON, err := nfResp.FormatJSON()
	if err != nil {
		return sessionID, nil, &GenerationError{Kind: KindRequirement, Err: err}
	}

	merged := MergeRequirements(fJSON, nfJSON, query)
	g.thinking.Complete("Respuesta generada")

	g.recordTurn(sessionID, query, merged, fRaw+"\n\n"+nfRaw)
	return sessionID, merged, nil
}

// GenerateEpics runs the single-call epic flow over a requirements
// description and records the turn.
func (g *ContentGenerator) GenerateEpics(ctx context.Context, sessionID, requirementsDescription string, newChat bool) (string, *AssistantResponse, error) {
	sessionID = g.resolveSession(sessionID, newChat)

	g.thinking.Step(ctx, "Analizando los requerimientos del proyecto", 1500*time.Millisecond)

	resp, raw, err := g.generateOne(ctx, sessionID, requirementsDescription, EpicsPrompt, KindEpic, newChat)
	if err != nil {
		return sessionID, nil, err
	}
	g.thinking.Complete("Épicas generadas")

	g.recordTurn(sessionID, requirementsDescription, resp, raw)
	return sessionID, resp, nil
}

// GenerateUserStories runs the chunked user-story flow: the epic list is
// split into fixed-size batches, each batch generated sequentially, and the
// accumulated stories reconciled once so identifiers stay sequential across
// batch boundaries. The combined status is the most severe any batch
// reported.
func (g *ContentGenerator) GenerateUserStories(ctx context.Context, sessionID string, epics []EpicItem) (string, *AssistantResponse, error) {
	sessionID = g.resolveSession(sessionID, false)

	var (
		batches     [][]UserStoryItem
		rawParts    []string
		status      = StatusStoriesGenerated
		missingInfo []string
	)

	for _, group := range ChunkEpics(epics, DefaultChunkSize) {
		input := FormatEpicGroupInput(group)
		g.thinking.Step(ctx, "Generando historias de usuario para el lote", 1200*time.Millisecond)

		resp, raw, err := g.generateOne(ctx, sessionID, input, UserStoryPrompt, KindUserStory, false)
		if err != nil {
			return sessionID, nil, err
		}
		rawParts = append(rawParts, raw)

		if items, ok := resp.Content.([]UserStoryItem); ok {
			batches = append(batches, items)
		}
		if resp.Status.Severity() > status.Severity() {
			status = resp.Status
		}
		missingInfo = unionStrings(missingInfo, resp.MissingInfo)
	}

	final := &AssistantResponse{
		Status:    status,
		Query:     formatEpicsQuery(epics),
		Timestamp: Now(),
		Content:   MergeStoryChunks(batches),
	}
	if status == StatusInsufficientInfo {
		final.MissingInfo = EnsureMissingInfo(missingInfo)
	}
	g.thinking.Complete("Historias de usuario generadas")

	g.recordTurn(sessionID, final.Query, final, strings.Join(rawParts, "\n\n"))
	return sessionID, final, nil
}

// generateOne performs a single retrieve+generate+normalize pass.
func (g *ContentGenerator) generateOne(ctx context.Context, sessionID, query, preprompt string, kind ItemKind, newChat bool) (*AssistantResponse, string, error) {
	g.thinking.Step(ctx, "Buscando información relevante en la base de conocimiento", 2*time.Second)

	chunks, err := g.retriever.Retrieve(ctx, query, g.retrievalK)
	if err != nil {
		return nil, "", &GenerationError{Kind: kind, Err: err}
	}
	g.saveContext(sessionID, chunks)

	system := SystemMessage(preprompt, strings.Join(chunks, "\n\n"), kind)
	user := g.userMessage(sessionID, query, newChat)

	g.thinking.Step(ctx, "Procesando documentos recuperados y generando respuesta", 2500*time.Millisecond)

	raw, err := g.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, "", &GenerationError{Kind: kind, Err: err}
	}

	g.thinking.Step(ctx, "Analizando la información recuperada", 1200*time.Millisecond)

	return g.normalizer.Normalize(raw, query, kind), raw, nil
}

// userMessage renders the final user prompt, prefixing prior turns so the
// model sees the conversation unless this is a fresh chat.
func (g *ContentGenerator) userMessage(sessionID, query string, newChat bool) string {
	var b strings.Builder
	if !newChat {
		for _, t := range g.store.History(sessionID) {
			b.WriteString(labelQuery + t.Query + "\n")
			b.WriteString(labelResponse + t.Response + "\n\n")
		}
	}
	b.WriteString(labelQuery + query)
	return b.String()
}

func (g *ContentGenerator) resolveSession(sessionID string, newChat bool) string {
	if newChat {
		return g.store.CreateOrGet("")
	}
	return g.store.CreateOrGet(sessionID)
}

// recordTurn appends and persists the finished turn. Persistence failures
// are logged and swallowed: a failed save must not prevent returning the
// generated answer.
func (g *ContentGenerator) recordTurn(sessionID, query string, resp *AssistantResponse, raw string) {
	text, err := resp.FormatJSON()
	if err != nil {
		LogError("failed to render response for session %s: %v", sessionID, err)
		return
	}
	turn := Turn{
		Query:       query,
		Response:    text,
		Timestamp:   resp.Timestamp,
		RawResponse: raw,
	}
	if err := g.store.AppendAndPersist(sessionID, turn); err != nil {
		LogError("failed to persist session %s: %v", sessionID, err)
	}
}

func (g *ContentGenerator) saveContext(sessionID string, chunks []string) {
	g.store.SetLastContext(sessionID, chunks)
	if g.contexts == nil {
		return
	}
	if err := g.contexts.Save(sessionID, chunks); err != nil {
		LogWarn("failed to archive retrieval context for session %s: %v", sessionID, err)
	}
}

// formatEpicsQuery renders the epic list as the query text recorded for a
// user-story turn.
func formatEpicsQuery(epics []EpicItem) string {
	if len(epics) == 0 {
		return "historias de usuario"
	}
	ids := make([]string, len(epics))
	for i, e := range epics {
		ids[i] = e.ID
	}
	return "Historias de usuario para " + strings.Join(ids, ", ")
}
