package model

// Task priority levels, highest first.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task sources, in the order the synthesizer emits them.
const (
	TaskSourceUser      = "user"
	TaskSourceEmail     = "email"
	TaskSourceHeuristic = "heuristic"
)

// Task is one entry of the synthesized briefing task list.
type Task struct {
	// ID is the internal unique identifier for this task.
	ID string `json:"id"`

	// Text is the human-readable task description.
	Text string `json:"task"`

	// Priority is one of the Priority* constants.
	Priority string `json:"priority"`

	// Source identifies which synthesis rule produced the task
	// (use the TaskSource* constants).
	Source string `json:"source"`

	// Completed is the only field a downstream consumer may toggle, and
	// only in its own persisted view. The pipeline never mutates it
	// after creation.
	Completed bool `json:"completed"`
}
