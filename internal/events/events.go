// Package events publishes analysis progress for documents and batches.
//
// Events are published to subjects of the form
//
//	<prefix>.<kind>.<id>.<stage>
//
// e.g. chunkopt.batch.7f3c.item. Publishing is best effort: the engine logs a
// failed publish and carries on.
package events

import (
	"context"
	"strings"
	"time"
)

// Kind is the kind of request an event belongs to.
type Kind string

const (
	KindDocument Kind = "document"
	KindBatch    Kind = "batch"
)

// Stage marks where in a request's lifecycle an event was produced.
type Stage string

const (
	StageStarted   Stage = "started"
	StageItem      Stage = "item"
	StageCompleted Stage = "completed"
)

// Event is a progress notification for a document or batch.
type Event struct {
	Kind          Kind      `json:"kind"`
	ID            string    `json:"id"`
	Stage         Stage     `json:"stage"`
	Domain        string    `json:"domain,omitempty"`
	ChunkID       string    `json:"chunk_id,omitempty"`
	Total         int       `json:"total"`
	Processed     int       `json:"processed"`
	Failed        int       `json:"failed"`
	Optimizations int       `json:"optimizations,omitempty"`
	HighPriority  int       `json:"high_priority,omitempty"`
	Error         string    `json:"error,omitempty"`
	TraceID       string    `json:"trace_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Subject returns the subject ev is published on under prefix.
func Subject(prefix string, ev Event) string {
	return strings.Join([]string{prefix, string(ev.Kind), token(ev.ID), string(ev.Stage)}, ".")
}

// token makes s usable as a single subject token. Separators, wildcards and
// whitespace are replaced with '_'.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
