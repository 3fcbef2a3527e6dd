package store

import (
	"errors"
	"testing"
	"time"

	"github.com/starmast/epub-edit/internal/edit"
	"github.com/starmast/epub-edit/internal/home"
	"github.com/starmast/epub-edit/internal/run"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New failed: %v", err)
	}
	fs, err := NewFileStore(h, "testbook", nil)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return fs
}

func TestNewFileStore(t *testing.T) {
	t.Run("rejects empty project", func(t *testing.T) {
		h, _ := home.New(t.TempDir())
		if _, err := NewFileStore(h, "", nil); err == nil {
			t.Error("expected error for empty project")
		}
	})

	t.Run("rejects path separators", func(t *testing.T) {
		h, _ := home.New(t.TempDir())
		if _, err := NewFileStore(h, "../escape", nil); err == nil {
			t.Error("expected error for project with path separator")
		}
	})
}

func TestFileStore_ImportAndList(t *testing.T) {
	fs := newTestStore(t)

	for num, text := range map[int]string{1: "one", 2: "two", 3: "three", 5: "five"} {
		if err := fs.ImportChapter(num, "", text); err != nil {
			t.Fatalf("import failed: %v", err)
		}
	}

	t.Run("lists all in order", func(t *testing.T) {
		refs, err := fs.Chapters(1, 0)
		if err != nil {
			t.Fatalf("Chapters failed: %v", err)
		}
		if len(refs) != 4 {
			t.Fatalf("expected 4 chapters, got %d", len(refs))
		}
		want := []int{1, 2, 3, 5}
		for i, ref := range refs {
			if ref.Number != want[i] {
				t.Errorf("position %d: expected chapter %d, got %d", i, want[i], ref.Number)
			}
		}
	})

	t.Run("filters by range", func(t *testing.T) {
		refs, err := fs.Chapters(2, 3)
		if err != nil {
			t.Fatalf("Chapters failed: %v", err)
		}
		if len(refs) != 2 {
			t.Errorf("expected 2 chapters, got %d", len(refs))
		}
	})

	t.Run("default title", func(t *testing.T) {
		refs, _ := fs.Chapters(1, 1)
		if refs[0].Title != "Chapter 1" {
			t.Errorf("unexpected title: %s", refs[0].Title)
		}
	})

	t.Run("title from metadata", func(t *testing.T) {
		if err := fs.ImportChapter(7, "The Reckoning", "seven"); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		refs, _ := fs.Chapters(7, 7)
		if refs[0].Title != "The Reckoning" {
			t.Errorf("unexpected title: %s", refs[0].Title)
		}
	})
}

func TestFileStore_LoadOriginalText(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.ImportChapter(1, "", "chapter body"); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	text, err := fs.LoadOriginalText(run.ChapterRef{Number: 1})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if text != "chapter body" {
		t.Errorf("unexpected text: %q", text)
	}

	_, err = fs.LoadOriginalText(run.ChapterRef{Number: 99})
	if !errors.Is(err, ErrChapterNotFound) {
		t.Errorf("expected ErrChapterNotFound, got %v", err)
	}
}

func TestFileStore_SaveAndLoadResult(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.ImportChapter(1, "", "original"); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	result := &run.EditResult{
		EditedText:  "edited",
		Stats:       edit.Stats{TotalEdits: 2, Replacements: 2},
		RawOutput:   "R∆1∆a⟹b",
		Model:       "test-model",
		ProcessedAt: time.Now(),
	}
	if err := fs.SaveEditResult(run.ChapterRef{Number: 1}, result); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := fs.LoadEditResult(1)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.EditedText != "edited" || loaded.Stats.TotalEdits != 2 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}

	status, err := fs.Status(1)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.State != "completed" {
		t.Errorf("expected completed, got %s", status.State)
	}
}

func TestFileStore_MarkChapterFailed(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.MarkChapterFailed(run.ChapterRef{Number: 3}, "gateway exploded"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	status, err := fs.Status(3)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.State != "failed" || status.Error != "gateway exploded" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestFileStore_StatusPending(t *testing.T) {
	fs := newTestStore(t)
	status, err := fs.Status(1)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.State != "pending" {
		t.Errorf("untouched chapter should be pending, got %s", status.State)
	}
}
