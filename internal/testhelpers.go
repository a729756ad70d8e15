package internal

import "fmt"

// CreateTestSession creates a test session with sample turns
func CreateTestSession(id string) *Session {
	return &Session{
		ID: id,
		Turns: []Turn{
			{
				Query:     "Necesito un sistema de inventario",
				Response:  `{"status": "REQUERIMIENTOS_GENERADOS"}`,
				Timestamp: Now(),
			},
			{
				Query:     "Agrega soporte para reportes",
				Response:  `{"status": "REQUERIMIENTOS_GENERADOS"}`,
				Timestamp: Now(),
			},
		},
	}
}

// CreateTestSessionWithTurns creates a test session with custom turns
func CreateTestSessionWithTurns(id string, turns []Turn) *Session {
	return &Session{
		ID:    id,
		Turns: turns,
	}
}

// CreateTestTurn creates a single turn with a fixed timestamp
func CreateTestTurn(query, response string) Turn {
	return Turn{
		Query:     query,
		Response:  response,
		Timestamp: "2025-03-01 10:00:00",
	}
}

// RequirementsPayload renders a fenced model answer carrying n functional
// requirement items
func RequirementsPayload(n int) string {
	items := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			items += ","
		}
		items += fmt.Sprintf(`{"id": "%d", "title": "Requerimiento %d", "description": "Descripción %d", "category": "Funcional", "priority": "Alta"}`, i, i, i)
	}
	return "```json\n" + `{"status": "REQUERIMIENTOS_GENERADOS", "content": [` + items + `]}` + "\n```"
}
