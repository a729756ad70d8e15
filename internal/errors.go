package internal

import (
	"errors"
	"fmt"
)

// ErrNoJSONFound is returned by ExtractJSON when the model output contains
// no JSON-shaped substring at all.
var ErrNoJSONFound = errors.New("no JSON structure found in response")

// ErrNoHistory is returned when an operation needs recorded turns and the
// session has none.
var ErrNoHistory = errors.New("session has no recorded turns")

// ErrTurnOutOfRange is returned when a turn index does not resolve to a
// recorded turn.
var ErrTurnOutOfRange = errors.New("turn index out of range")

// PersistenceError represents errors reading or writing session log files
type PersistenceError struct {
	SessionID string
	Op        string // "write", "read", "remove"
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing persisted session data
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// GenerationError represents a failure in the upstream generation capability.
// This is the only error class surfaced to callers as a hard failure.
type GenerationError struct {
	Kind ItemKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error [%s]: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// KnowledgeError represents errors accessing the knowledge base
type KnowledgeError struct {
	Op  string // "open", "add", "retrieve"
	Err error
}

func (e *KnowledgeError) Error() string {
	return fmt.Sprintf("knowledge error: %s: %v", e.Op, e.Err)
}

func (e *KnowledgeError) Unwrap() error {
	return e.Err
}
