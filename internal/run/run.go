// Package run drives a processing run: batching a chapter range, dispatching
// batches to a bounded worker pool, and applying model edits through the
// persistence and notification collaborators.
package run

import (
	"time"

	"github.com/starmast/epub-edit/internal/edit"
	"github.com/starmast/epub-edit/internal/llm"
)

// ChapterRef identifies one chapter to the persistence collaborator.
type ChapterRef struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// EditResult is everything persisted for one edited chapter.
type EditResult struct {
	EditedText string     `json:"edited_text"`
	Stats      edit.Stats `json:"stats"`

	// RawOutput is the model's full response for the batch this chapter was
	// part of, kept for reference and reprocessing.
	RawOutput string   `json:"raw_output"`
	Commands  []string `json:"chapter_commands"`

	Usage         llm.Usage `json:"usage"`
	Model         string    `json:"model"`
	BatchChapters []int     `json:"batch_chapters"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Store is the persistence collaborator. The run core does not define
// storage location or schema; it assumes the collaborator provides atomic
// per-chapter updates.
type Store interface {
	// Chapters lists chapters in [start, end] that are eligible for
	// processing, in chapter order.
	Chapters(start, end int) ([]ChapterRef, error)

	// LoadOriginalText returns a chapter's original body text.
	LoadOriginalText(ref ChapterRef) (string, error)

	// SaveEditResult persists the outcome of editing one chapter.
	SaveEditResult(ref ChapterRef, result *EditResult) error

	// MarkChapterFailed records a chapter-scoped failure so a user can
	// retry that chapter alone.
	MarkChapterFailed(ref ChapterRef, msg string) error

	// Session returns an independent handle for use by a single worker.
	// Store implementations may not be safe for concurrent callers.
	Session() Store
}

// EventType enumerates scheduler progress events.
type EventType string

const (
	EventBatchStarted     EventType = "batch_started"
	EventChapterCompleted EventType = "chapter_completed"
	EventChapterFailed    EventType = "chapter_failed"
	EventRunCompleted     EventType = "run_completed"
	EventRunFailed        EventType = "run_failed"
)

// Event is a fire-and-forget progress notification.
type Event struct {
	Type          EventType   `json:"type"`
	RunID         string      `json:"run_id"`
	ChapterID     string      `json:"chapter_id,omitempty"`
	ChapterNumber int         `json:"chapter_number,omitempty"`
	Chapters      []int       `json:"chapters,omitempty"`
	Stats         *edit.Stats `json:"stats,omitempty"`
	Error         string      `json:"error,omitempty"`
	Time          time.Time   `json:"time"`
}

// Notifier receives progress events. Delivery is at-most-once and
// best-effort; implementations must never block the run.
type Notifier interface {
	Notify(ev Event)
}
