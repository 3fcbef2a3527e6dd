package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/starmast/epub-edit/internal/llm"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu       sync.Mutex
	chapters map[int]string
	results  map[int]*EditResult
	failed   map[int]string
	loadErr  error
	saveErr  error
}

func newMemStore(chapters map[int]string) *memStore {
	return &memStore{
		chapters: chapters,
		results:  make(map[int]*EditResult),
		failed:   make(map[int]string),
	}
}

func (s *memStore) Chapters(start, end int) ([]ChapterRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []ChapterRef
	for num := range s.chapters {
		if num < start || (end > 0 && num > end) {
			continue
		}
		refs = append(refs, ChapterRef{
			ID:     fmt.Sprintf("ch-%d", num),
			Number: num,
			Title:  fmt.Sprintf("Chapter %d", num),
		})
	}
	// Chapter order matters for batching.
	for i := 0; i < len(refs); i++ {
		for j := i + 1; j < len(refs); j++ {
			if refs[j].Number < refs[i].Number {
				refs[i], refs[j] = refs[j], refs[i]
			}
		}
	}
	return refs, nil
}

func (s *memStore) LoadOriginalText(ref ChapterRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", s.loadErr
	}
	text, ok := s.chapters[ref.Number]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func (s *memStore) SaveEditResult(ref ChapterRef, result *EditResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.results[ref.Number] = result
	return nil
}

func (s *memStore) MarkChapterFailed(ref ChapterRef, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[ref.Number] = msg
	return nil
}

func (s *memStore) Session() Store { return s }

func (s *memStore) result(num int) *EditResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[num]
}

// eventLog is a Notifier that records every event.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Notify(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) byType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// gateClient blocks each Complete until released, to make scheduling
// deterministic in tests.
type gateClient struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func newGateClient() *gateClient {
	return &gateClient{
		started: make(chan struct{}, 100),
		release: make(chan struct{}),
	}
}

func (c *gateClient) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	c.started <- struct{}{}

	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &llm.Result{Content: "NO_EDITS_NEEDED", Model: "gate"}, nil
}

func (c *gateClient) Name() string { return "gate" }

func (c *gateClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func waitDone(t *testing.T, r *Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish in time")
	}
}

func TestRunner_CompletesAllChapters(t *testing.T) {
	store := newMemStore(map[int]string{
		1: "one one\ntext", 2: "two\ntext", 3: "three\ntext",
		4: "four\ntext", 5: "five\ntext",
	})
	events := &eventLog{}
	mock := llm.NewMockClient()

	r := New(Config{
		Store:            store,
		Gateway:          mock,
		Notifier:         events,
		Workers:          2,
		ChaptersPerBatch: 2,
		StartChapter:     1,
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitDone(t, r)

	status := r.Status()
	if status.State != StateCompleted {
		t.Errorf("expected completed, got %s (%s)", status.State, status.Error)
	}
	if status.Completed != 5 {
		t.Errorf("expected 5 completed, got %d", status.Completed)
	}

	// 5 chapters at 2 per batch = 3 model calls.
	if mock.RequestCount() != 3 {
		t.Errorf("expected 3 gateway calls, got %d", mock.RequestCount())
	}

	if got := len(events.byType(EventChapterCompleted)); got != 5 {
		t.Errorf("expected 5 chapter_completed events, got %d", got)
	}
	if got := len(events.byType(EventRunCompleted)); got != 1 {
		t.Errorf("expected 1 run_completed event, got %d", got)
	}

	for num := 1; num <= 5; num++ {
		if store.result(num) == nil {
			t.Errorf("chapter %d has no saved result", num)
		}
	}
}

func TestRunner_AppliesEdits(t *testing.T) {
	store := newMemStore(map[int]string{1: "Teh cat sat.\nThe dog ran."})
	mock := llm.NewMockClient()
	mock.ResponseText = "R∆1∆Teh⟹The"

	r := New(Config{Store: store, Gateway: mock, ChaptersPerBatch: 1})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitDone(t, r)

	result := store.result(1)
	if result == nil {
		t.Fatal("no result saved")
	}
	if result.EditedText != "The cat sat.\nThe dog ran." {
		t.Errorf("unexpected edited text: %q", result.EditedText)
	}
	if result.Stats.Replacements != 1 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}
	if len(result.Commands) != 1 {
		t.Errorf("expected 1 recorded command, got %v", result.Commands)
	}
}

func TestRunner_RoutesBatchEditsAcrossChapters(t *testing.T) {
	// Chapter 1 contributes lines 1-2, chapter 2 lines 3-4 in the batch.
	store := newMemStore(map[int]string{
		1: "alpha\nbeta",
		2: "gamma\ndelta",
	})
	mock := llm.NewMockClient()
	// Absolute line 4 is chapter 2's second line.
	mock.ResponseText = "R∆4∆delta⟹DELTA"

	r := New(Config{Store: store, Gateway: mock, ChaptersPerBatch: 2})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitDone(t, r)

	if got := store.result(1).EditedText; got != "alpha\nbeta" {
		t.Errorf("chapter 1 should be unchanged, got %q", got)
	}
	if got := store.result(2).EditedText; got != "gamma\nDELTA" {
		t.Errorf("chapter 2 edit not applied: %q", got)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("expected a single batched call, got %d", mock.RequestCount())
	}
}

func TestRunner_GatewayFailureMarksBatchFailed(t *testing.T) {
	store := newMemStore(map[int]string{1: "a", 2: "b", 3: "c"})
	events := &eventLog{}
	mock := llm.NewMockClient()
	mock.ShouldFail = true

	r := New(Config{
		Store:            store,
		Gateway:          mock,
		Notifier:         events,
		ChaptersPerBatch: 3,
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitDone(t, r)

	status := r.Status()
	// Chapter-scoped failures leave the run completed.
	if status.State != StateCompleted {
		t.Errorf("expected completed, got %s", status.State)
	}
	if status.Failed != 3 {
		t.Errorf("expected 3 failed chapters, got %d", status.Failed)
	}
	if got := len(events.byType(EventChapterFailed)); got != 3 {
		t.Errorf("expected 3 chapter_failed events, got %d", got)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.failed) != 3 {
		t.Errorf("expected 3 chapters marked failed, got %d", len(store.failed))
	}
}

func TestRunner_StopDrainsQueueWithoutGateway(t *testing.T) {
	store := newMemStore(map[int]string{1: "a", 2: "b", 3: "c"})
	gate := newGateClient()

	r := New(Config{
		Store:            store,
		Gateway:          gate,
		Workers:          1,
		ChaptersPerBatch: 1,
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Wait for the first batch to reach the gateway, stop, then let the
	// in-flight call finish.
	<-gate.started
	r.Stop()
	close(gate.release)
	waitDone(t, r)

	status := r.Status()
	if status.State != StateStopped {
		t.Errorf("expected stopped, got %s", status.State)
	}
	if gate.callCount() != 1 {
		t.Errorf("queued batches must not reach the gateway: %d calls", gate.callCount())
	}
	if status.Completed != 1 {
		t.Errorf("in-flight batch should finish: %d completed", status.Completed)
	}
	if status.Skipped != 2 {
		t.Errorf("expected 2 skipped chapters, got %d", status.Skipped)
	}
}

func TestRunner_PauseBlocksAdmission(t *testing.T) {
	store := newMemStore(map[int]string{1: "a", 2: "b"})
	gate := newGateClient()
	close(gate.release) // complete immediately once admitted

	r := New(Config{
		Store:            store,
		Gateway:          gate,
		Workers:          1,
		ChaptersPerBatch: 1,
		PausePoll:        10 * time.Millisecond,
	})

	r.Pause()
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if gate.callCount() != 0 {
		t.Fatalf("paused run must not call the gateway: %d calls", gate.callCount())
	}
	if r.Status().State != StatePaused {
		t.Errorf("expected paused status, got %s", r.Status().State)
	}

	r.Resume()
	waitDone(t, r)

	status := r.Status()
	if status.State != StateCompleted {
		t.Errorf("expected completed, got %s", status.State)
	}
	if status.Completed != 2 {
		t.Errorf("expected 2 completed, got %d", status.Completed)
	}
}

func TestRunner_MisconfigurationFailsRun(t *testing.T) {
	r := New(Config{Gateway: llm.NewMockClient()})
	err := r.Start(context.Background())
	if err == nil {
		t.Fatal("expected error with no store")
	}
	if r.Status().State != StateFailed {
		t.Errorf("expected failed, got %s", r.Status().State)
	}
	waitDone(t, r)
}

func TestRunner_EmptyRangeCompletes(t *testing.T) {
	store := newMemStore(map[int]string{})
	r := New(Config{Store: store, Gateway: llm.NewMockClient()})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitDone(t, r)

	if r.Status().State != StateCompleted {
		t.Errorf("expected completed, got %s", r.Status().State)
	}
}
