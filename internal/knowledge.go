package internal

import (
	"context"
	"database/sql"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Chunking constants for ingested content.
const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// KnowledgeStore is the default Retriever implementation: a SQLite-backed
// chunk table scored by keyword overlap. The retrieval capability stays an
// interface; any vector store can replace this.
type KnowledgeStore struct {
	db *sql.DB
}

// OpenKnowledgeStore opens (creating when absent) the knowledge database at
// the given path.
func OpenKnowledgeStore(path string) (*KnowledgeStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &KnowledgeError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &KnowledgeError{Op: "open", Err: err}
	}

	schema := `CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &KnowledgeError{Op: "open", Err: err}
	}

	return &KnowledgeStore{db: db}, nil
}

// Close closes the underlying database.
func (k *KnowledgeStore) Close() error {
	return k.db.Close()
}

// AddContent splits content into overlapping chunks and stores them under
// the given source name. Returns the number of chunks created.
func (k *KnowledgeStore) AddContent(ctx context.Context, source, content string) (int, error) {
	chunks := SplitText(content, chunkSize, chunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &KnowledgeError{Op: "add", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Format(time.RFC3339)
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunks (source, content, created_at) VALUES (?, ?, ?)",
			source, chunk, now); err != nil {
			return 0, &KnowledgeError{Op: "add", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &KnowledgeError{Op: "add", Err: err}
	}
	return len(chunks), nil
}

// Retrieve returns the top-k chunks most relevant to the query, scored by
// term overlap. Chunks sharing no term with the query are never returned.
func (k *KnowledgeStore) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	terms := queryTerms(query)
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	// Prefilter candidates in SQL, score precisely in Go.
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		conds = append(conds, "lower(content) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	q := "SELECT content FROM chunks WHERE " + strings.Join(conds, " OR ")

	rows, err := k.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &KnowledgeError{Op: "retrieve", Err: err}
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		content string
		score   int
	}
	var candidates []scored
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, &KnowledgeError{Op: "retrieve", Err: err}
		}
		lower := strings.ToLower(content)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{content: content, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &KnowledgeError{Op: "retrieve", Err: err}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.content
	}
	return out, nil
}

// ChunkCount returns the number of stored chunks.
func (k *KnowledgeStore) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := k.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, &KnowledgeError{Op: "retrieve", Err: err}
	}
	return n, nil
}

// SplitText splits text into chunks of roughly size runes with the given
// overlap, preferring to break on whitespace near the boundary.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = chunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

var termPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// queryTerms lower-cases and tokenizes a query, dropping short stop-ish
// terms that would match everything.
func queryTerms(query string) []string {
	raw := termPattern.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool)
	var terms []string
	for _, t := range raw {
		if len([]rune(t)) < 3 || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}
