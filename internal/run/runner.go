package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starmast/epub-edit/internal/batch"
	"github.com/starmast/epub-edit/internal/edit"
	"github.com/starmast/epub-edit/internal/llm"
	"github.com/starmast/epub-edit/internal/tokens"
)

// Config configures a Runner.
type Config struct {
	Store    Store
	Gateway  llm.Client
	Notifier Notifier
	Logger   *slog.Logger

	StartChapter int
	EndChapter   int

	// Workers is both the worker count and the admission semaphore size
	// (default 3).
	Workers int
	// ChaptersPerBatch groups this many consecutive chapters per model
	// request (default 3).
	ChaptersPerBatch int

	// SystemPrompt overrides the style-derived prompt when set.
	SystemPrompt string
	PromptStyle  llm.PromptStyle

	// MaxTokens caps the completion size (default 4096). When Counter is
	// set, the cap is further clamped to the remaining context window.
	MaxTokens     int
	ContextWindow int
	SafetyBuffer  int
	Counter       *tokens.Counter

	// PausePoll is the cooperative pause recheck interval (default 1s).
	PausePoll time.Duration
}

// Runner executes one processing run over a chapter range. Workers share a
// preloaded FIFO queue and a semaphore; pause blocks new batch admission
// without cancelling in-flight work, stop lets in-flight batches finish and
// drains the rest of the queue untouched.
type Runner struct {
	id  string
	cfg Config

	logger   *slog.Logger
	parser   *edit.Parser
	applier  *edit.Applier
	splitter *batch.Splitter

	// Orthogonal control flags shared across workers.
	running atomic.Bool
	paused  atomic.Bool

	mu         sync.Mutex
	state      State
	total      int
	completed  int
	failed     int
	skipped    int
	runErr     error
	stopped    bool
	startedAt  time.Time
	finishedAt time.Time

	done chan struct{}
}

// New creates a runner. Configuration is validated at Start so that
// construction never fails; a misconfigured runner fails its run instead.
func New(cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.ChaptersPerBatch <= 0 {
		cfg.ChaptersPerBatch = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.PausePoll <= 0 {
		cfg.PausePoll = time.Second
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = llm.SystemPrompt(cfg.PromptStyle)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New().String()
	logger = logger.With("run_id", id)

	return &Runner{
		id:       id,
		cfg:      cfg,
		logger:   logger,
		parser:   edit.NewParser(logger),
		applier:  edit.NewApplier(logger),
		splitter: batch.NewSplitter(logger),
		state:    StateIdle,
		done:     make(chan struct{}),
	}
}

// ID returns the run identifier.
func (r *Runner) ID() string {
	return r.id
}

// Start validates configuration, loads the chapter range and launches the
// worker pool. It returns once workers are running; Done signals completion.
// Configuration-level errors fail the whole run immediately.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.validate(); err != nil {
		r.fail(err)
		return err
	}

	refs, err := r.cfg.Store.Chapters(r.cfg.StartChapter, r.cfg.EndChapter)
	if err != nil {
		err = fmt.Errorf("failed to list chapters: %w", err)
		r.fail(err)
		return err
	}
	if len(refs) == 0 {
		r.logger.Info("no chapters to process")
		r.mu.Lock()
		r.state = StateCompleted
		r.finishedAt = time.Now()
		r.mu.Unlock()
		close(r.done)
		return nil
	}

	batches := groupRefs(refs, r.cfg.ChaptersPerBatch)

	r.mu.Lock()
	r.state = StateRunning
	r.total = len(refs)
	r.startedAt = time.Now()
	r.mu.Unlock()
	r.running.Store(true)

	r.logger.Info("processing run started",
		"chapters", len(refs),
		"batches", len(batches),
		"workers", r.cfg.Workers,
		"chapters_per_batch", r.cfg.ChaptersPerBatch,
	)

	go r.run(ctx, batches)
	return nil
}

func (r *Runner) validate() error {
	if r.cfg.Store == nil {
		return errors.New("run misconfigured: no persistence store")
	}
	if r.cfg.Gateway == nil {
		return errors.New("run misconfigured: no LLM gateway")
	}
	return nil
}

// Pause blocks new batch admission. In-flight batches finish.
func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("run paused")
}

// Resume clears the pause flag.
func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("run resumed")
}

// Stop prevents any new batch from starting. In-flight batches finish;
// queued batches are drained without work.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.running.Store(false)
	r.paused.Store(false)
	r.logger.Info("run stopped")
}

// Done is closed when the run reaches a terminal state.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Status returns a snapshot of the run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state
	if state == StateRunning && r.paused.Load() {
		state = StatePaused
	}

	errMsg := ""
	if r.runErr != nil {
		errMsg = r.runErr.Error()
	}

	return Status{
		ID:            r.id,
		State:         state,
		StartChapter:  r.cfg.StartChapter,
		EndChapter:    r.cfg.EndChapter,
		TotalChapters: r.total,
		Completed:     r.completed,
		Failed:        r.failed,
		Skipped:       r.skipped,
		StartedAt:     r.startedAt,
		FinishedAt:    r.finishedAt,
		Error:         errMsg,
	}
}

// run owns the queue and worker lifecycle. The queue is preloaded with every
// batch before any worker starts, so workers can treat channel-closed as
// queue-empty.
func (r *Runner) run(ctx context.Context, batches [][]ChapterRef) {
	defer r.finalize()

	queue := make(chan []ChapterRef, len(batches))
	for _, b := range batches {
		queue <- b
	}
	close(queue)

	sem := make(chan struct{}, r.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			r.worker(ctx, workerNum, queue, sem)
		}(i)
	}
	wg.Wait()
}

// worker pulls batches until the queue is empty. A paused worker sleeps and
// rechecks rather than consuming work; a stopped worker drains remaining
// items as not-taken without invoking the gateway.
func (r *Runner) worker(ctx context.Context, workerNum int, queue <-chan []ChapterRef, sem chan struct{}) {
	logger := r.logger.With("worker", workerNum)
	session := r.cfg.Store.Session()

	for refs := range queue {
		for r.paused.Load() && r.running.Load() {
			select {
			case <-ctx.Done():
				r.addSkipped(len(refs))
				return
			case <-time.After(r.cfg.PausePoll):
			}
		}

		if !r.running.Load() || ctx.Err() != nil {
			r.addSkipped(len(refs))
			continue
		}

		sem <- struct{}{}
		r.processBatch(ctx, session, refs, logger)
		<-sem
	}
}

// processBatch edits one batch end-to-end: load → prompt → complete → parse
// → remap → apply → persist → notify. Any failure marks every chapter in
// the batch failed; other batches are unaffected.
func (r *Runner) processBatch(ctx context.Context, session Store, refs []ChapterRef, logger *slog.Logger) {
	numbers := make([]int, len(refs))
	for i, ref := range refs {
		numbers[i] = ref.Number
	}
	logger.Info("processing batch", "chapters", numbers)
	r.notify(Event{Type: EventBatchStarted, RunID: r.id, Chapters: numbers, Time: time.Now()})

	chapters := make([]batch.Chapter, 0, len(refs))
	originals := make(map[int]string, len(refs))
	for _, ref := range refs {
		text, err := session.LoadOriginalText(ref)
		if err != nil {
			r.failBatch(session, refs, fmt.Errorf("failed to load chapter %d: %w", ref.Number, err))
			return
		}
		originals[ref.Number] = text
		chapters = append(chapters, batch.Chapter{
			Number: ref.Number,
			Title:  ref.Title,
			Lines:  batch.SplitText(text),
		})
	}

	prompt := batch.Build(chapters)
	maxTokens := r.responseTokens(prompt.Body, logger)

	result, err := r.cfg.Gateway.Complete(ctx, &llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: r.cfg.SystemPrompt},
			{Role: "user", Content: "CHAPTERS TO EDIT (with line numbers):\n\n" + prompt.Body},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		r.failBatch(session, refs, fmt.Errorf("completion failed: %w", err))
		return
	}

	commands := r.parser.Parse(result.Content)
	perChapter := r.splitter.Split(commands, prompt.Mappings)

	for _, ref := range refs {
		chapterCmds := perChapter[ref.Number]
		edited, stats := r.applier.Apply(originals[ref.Number], chapterCmds)

		cmdStrings := make([]string, len(chapterCmds))
		for i, cmd := range chapterCmds {
			cmdStrings[i] = cmd.String()
		}

		err := session.SaveEditResult(ref, &EditResult{
			EditedText:    edited,
			Stats:         stats,
			RawOutput:     result.Content,
			Commands:      cmdStrings,
			Usage:         result.Usage,
			Model:         result.Model,
			BatchChapters: numbers,
			ProcessedAt:   time.Now(),
		})
		if err != nil {
			r.failChapter(session, ref, fmt.Errorf("failed to persist result: %w", err))
			continue
		}

		r.mu.Lock()
		r.completed++
		r.mu.Unlock()

		logger.Info("chapter completed", "chapter", ref.Number,
			"edits", stats.TotalEdits, "lines", stats.EditedLines)
		r.notify(Event{
			Type:          EventChapterCompleted,
			RunID:         r.id,
			ChapterID:     ref.ID,
			ChapterNumber: ref.Number,
			Stats:         &stats,
			Time:          time.Now(),
		})
	}
}

// responseTokens clamps the configured completion cap to the remaining
// context window when a token counter is available.
func (r *Runner) responseTokens(promptBody string, logger *slog.Logger) int {
	maxTokens := r.cfg.MaxTokens
	if r.cfg.Counter == nil || r.cfg.ContextWindow <= 0 {
		return maxTokens
	}

	budget := r.cfg.Counter.ResponseBudget(r.cfg.SystemPrompt, promptBody, r.cfg.ContextWindow, r.cfg.SafetyBuffer)
	if budget == 0 {
		logger.Warn("batch prompt exceeds context window, sending anyway",
			"context_window", r.cfg.ContextWindow)
		return maxTokens
	}
	if budget < maxTokens {
		logger.Debug("clamping completion budget", "max_tokens", budget)
		return budget
	}
	return maxTokens
}

func (r *Runner) failBatch(session Store, refs []ChapterRef, err error) {
	r.logger.Error("batch failed", "error", err)
	for _, ref := range refs {
		r.failChapter(session, ref, err)
	}
}

func (r *Runner) failChapter(session Store, ref ChapterRef, err error) {
	if markErr := session.MarkChapterFailed(ref, err.Error()); markErr != nil {
		r.logger.Error("failed to mark chapter failed", "chapter", ref.Number, "error", markErr)
	}

	r.mu.Lock()
	r.failed++
	r.mu.Unlock()

	r.notify(Event{
		Type:          EventChapterFailed,
		RunID:         r.id,
		ChapterID:     ref.ID,
		ChapterNumber: ref.Number,
		Error:         err.Error(),
		Time:          time.Now(),
	})
}

func (r *Runner) addSkipped(n int) {
	r.mu.Lock()
	r.skipped += n
	r.mu.Unlock()
}

// fail records a run-level failure (misconfiguration, chapter listing).
// Already-completed chapters keep their state.
func (r *Runner) fail(err error) {
	r.logger.Error("run failed", "error", err)

	r.mu.Lock()
	r.state = StateFailed
	r.runErr = err
	r.finishedAt = time.Now()
	r.mu.Unlock()
	r.running.Store(false)

	r.notify(Event{Type: EventRunFailed, RunID: r.id, Error: err.Error(), Time: time.Now()})
	close(r.done)
}

// finalize settles the terminal state once every queue item is accounted
// for: stopped wins over completed; failed only on run-level errors,
// chapter-scoped failures leave the run completed.
func (r *Runner) finalize() {
	r.running.Store(false)
	r.paused.Store(false)

	r.mu.Lock()
	switch {
	case r.runErr != nil:
		r.state = StateFailed
	case r.stopped:
		r.state = StateStopped
	default:
		r.state = StateCompleted
	}
	state := r.state
	errMsg := ""
	if r.runErr != nil {
		errMsg = r.runErr.Error()
	}
	r.finishedAt = time.Now()
	r.mu.Unlock()

	r.logger.Info("processing run finished", "state", state)
	switch state {
	case StateFailed:
		r.notify(Event{Type: EventRunFailed, RunID: r.id, Error: errMsg, Time: time.Now()})
	default:
		r.notify(Event{Type: EventRunCompleted, RunID: r.id, Time: time.Now()})
	}

	close(r.done)
}

// notify forwards an event to the notifier when one is configured. Delivery
// failures must never fail the run, so the notifier contract is
// fire-and-forget.
func (r *Runner) notify(ev Event) {
	if r.cfg.Notifier == nil {
		return
	}
	r.cfg.Notifier.Notify(ev)
}

// groupRefs splits refs into batches of perBatch consecutive chapters,
// preserving chapter order for narrative consistency.
func groupRefs(refs []ChapterRef, perBatch int) [][]ChapterRef {
	var groups [][]ChapterRef
	for i := 0; i < len(refs); i += perBatch {
		end := min(i+perBatch, len(refs))
		groups = append(groups, refs[i:end])
	}
	return groups
}
