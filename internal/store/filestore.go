// Package store persists projects as plain files under the epubedit home
// directory. Each chapter is a numbered text file with sibling JSON records
// for results and processing status, so a project survives restarts and can
// be inspected with ordinary tools.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/starmast/epub-edit/internal/home"
	"github.com/starmast/epub-edit/internal/run"
)

// ErrChapterNotFound is returned when a chapter file does not exist.
var ErrChapterNotFound = errors.New("chapter not found")

var chapterFilePattern = regexp.MustCompile(`^(\d{3})\.txt$`)

// ChapterStatus is the per-chapter processing record.
type ChapterStatus struct {
	State       string    `json:"state"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at,omitzero"`
}

// chapterMeta is the optional sidecar carrying a chapter's title and source
// identifier. Chapters imported without metadata fall back to defaults.
type chapterMeta struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FileStore implements run.Store over a project directory.
type FileStore struct {
	dir     *home.Dir
	project string
	logger  *slog.Logger
}

// NewFileStore creates a store for one project, creating the project
// directory if needed.
func NewFileStore(dir *home.Dir, project string, logger *slog.Logger) (*FileStore, error) {
	if project == "" {
		return nil, errors.New("project name is required")
	}
	if strings.ContainsAny(project, `/\`) {
		return nil, fmt.Errorf("invalid project name %q", project)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := dir.EnsureProjectDir(project); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}

	return &FileStore{
		dir:     dir,
		project: project,
		logger:  logger.With("component", "store", "project", project),
	}, nil
}

// Project returns the project name.
func (s *FileStore) Project() string {
	return s.project
}

// Chapters lists chapters numbered in [start, end], in chapter order.
// end <= 0 means "through the last chapter".
func (s *FileStore) Chapters(start, end int) ([]run.ChapterRef, error) {
	entries, err := os.ReadDir(s.dir.ChaptersDir(s.project))
	if err != nil {
		return nil, fmt.Errorf("failed to read chapters directory: %w", err)
	}

	var refs []run.ChapterRef
	for _, entry := range entries {
		m := chapterFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if num < start || (end > 0 && num > end) {
			continue
		}
		refs = append(refs, s.ref(num))
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Number < refs[j].Number })
	return refs, nil
}

func (s *FileStore) ref(num int) run.ChapterRef {
	ref := run.ChapterRef{
		ID:     fmt.Sprintf("%s-%03d", s.project, num),
		Number: num,
		Title:  fmt.Sprintf("Chapter %d", num),
	}

	data, err := os.ReadFile(s.dir.MetaPath(s.project, num))
	if err != nil {
		return ref
	}
	var meta chapterMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		s.logger.Warn("ignoring malformed chapter metadata", "chapter", num, "error", err)
		return ref
	}
	if meta.ID != "" {
		ref.ID = meta.ID
	}
	if meta.Title != "" {
		ref.Title = meta.Title
	}
	return ref
}

// LoadOriginalText returns a chapter's original body text.
func (s *FileStore) LoadOriginalText(ref run.ChapterRef) (string, error) {
	data, err := os.ReadFile(s.dir.ChapterPath(s.project, ref.Number))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("chapter %d: %w", ref.Number, ErrChapterNotFound)
		}
		return "", fmt.Errorf("failed to read chapter %d: %w", ref.Number, err)
	}
	return string(data), nil
}

// SaveEditResult persists the edit result and marks the chapter completed.
// The result file is written before the status record so a completed status
// always has a result behind it.
func (s *FileStore) SaveEditResult(ref run.ChapterRef, result *run.EditResult) error {
	if err := writeJSON(s.dir.ResultPath(s.project, ref.Number), result); err != nil {
		return fmt.Errorf("failed to write result for chapter %d: %w", ref.Number, err)
	}

	status := ChapterStatus{State: "completed", ProcessedAt: result.ProcessedAt}
	if err := writeJSON(s.dir.StatusPath(s.project, ref.Number), status); err != nil {
		return fmt.Errorf("failed to write status for chapter %d: %w", ref.Number, err)
	}
	return nil
}

// MarkChapterFailed records a chapter-scoped failure.
func (s *FileStore) MarkChapterFailed(ref run.ChapterRef, msg string) error {
	status := ChapterStatus{State: "failed", Error: msg, ProcessedAt: time.Now()}
	if err := writeJSON(s.dir.StatusPath(s.project, ref.Number), status); err != nil {
		return fmt.Errorf("failed to write status for chapter %d: %w", ref.Number, err)
	}
	return nil
}

// Session returns an independent handle. File access is per-call, so the
// same store backs every session.
func (s *FileStore) Session() run.Store {
	return s
}

// LoadEditResult reads a previously saved edit result.
func (s *FileStore) LoadEditResult(chapterNum int) (*run.EditResult, error) {
	data, err := os.ReadFile(s.dir.ResultPath(s.project, chapterNum))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("result for chapter %d: %w", chapterNum, ErrChapterNotFound)
		}
		return nil, fmt.Errorf("failed to read result for chapter %d: %w", chapterNum, err)
	}

	var result run.EditResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result for chapter %d: %w", chapterNum, err)
	}
	return &result, nil
}

// Status reads a chapter's processing record. Chapters never touched by a
// run report state "pending".
func (s *FileStore) Status(chapterNum int) (ChapterStatus, error) {
	data, err := os.ReadFile(s.dir.StatusPath(s.project, chapterNum))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ChapterStatus{State: "pending"}, nil
		}
		return ChapterStatus{}, fmt.Errorf("failed to read status for chapter %d: %w", chapterNum, err)
	}

	var status ChapterStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return ChapterStatus{}, fmt.Errorf("failed to decode status for chapter %d: %w", chapterNum, err)
	}
	return status, nil
}

// ImportChapter writes a chapter's original text and optional title.
func (s *FileStore) ImportChapter(chapterNum int, title, text string) error {
	if chapterNum < 1 {
		return fmt.Errorf("invalid chapter number %d", chapterNum)
	}

	path := s.dir.ChapterPath(s.project, chapterNum)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write chapter %d: %w", chapterNum, err)
	}

	if title != "" {
		meta := chapterMeta{
			ID:    fmt.Sprintf("%s-%03d", s.project, chapterNum),
			Title: title,
		}
		if err := writeJSON(s.dir.MetaPath(s.project, chapterNum), meta); err != nil {
			return fmt.Errorf("failed to write metadata for chapter %d: %w", chapterNum, err)
		}
	}

	s.logger.Info("chapter imported", "chapter", chapterNum, "bytes", len(text))
	return nil
}

// writeJSON writes v atomically via a temp file rename, so readers never
// observe a partially written record.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Verify interface
var _ run.Store = (*FileStore)(nil)
