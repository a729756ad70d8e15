package internal

// Turn is one query/response exchange within a session. Turns are created
// whole: a turn is appended only after a full normalized response exists.
type Turn struct {
	Query       string `json:"query"`
	Response    string `json:"response"`
	Timestamp   string `json:"timestamp"`
	RawResponse string `json:"raw_response,omitempty"`
}

// Session is a named, ordered sequence of turns plus the chunks retrieved
// for the most recent generation.
type Session struct {
	ID          string   `json:"id"`
	Turns       []Turn   `json:"turns"`
	LastContext []string `json:"last_context,omitempty"`
}

// TurnCount returns the number of turns in the session.
func (s *Session) TurnCount() int {
	return len(s.Turns)
}
