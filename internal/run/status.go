package run

import "time"

// State is the lifecycle state of a processing run:
// Idle → Running → {Paused ⇄ Running} → {Completed | Failed | Stopped}.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateStopped:
		return true
	}
	return false
}

// Status is a point-in-time snapshot of a run.
type Status struct {
	ID            string    `json:"id"`
	State         State     `json:"state"`
	StartChapter  int       `json:"start_chapter"`
	EndChapter    int       `json:"end_chapter"`
	TotalChapters int       `json:"total_chapters"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
	Skipped       int       `json:"skipped"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	FinishedAt    time.Time `json:"finished_at,omitzero"`
	Error         string    `json:"error,omitempty"`
}
