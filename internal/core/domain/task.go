package domain

import "time"

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeIngestDocument runs the ingestion pipeline for one uploaded document
	TaskTypeIngestDocument TaskType = "ingest_document"
	// TaskTypeDeleteCollection removes a document's vector collection
	TaskTypeDeleteCollection TaskType = "delete_collection"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// DocumentID is the document this task operates on
	DocumentID string `json:"document_id"`

	// Payload contains task-specific data
	// For ingest_document: {} (document record holds the file path)
	// For delete_collection: {"collection": "doc-abc123"}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	// CreatedAt is when the task was enqueued
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when processing began (nil if not started)
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when processing finished (nil if not complete)
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the task should be processed (for delayed tasks)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, documentID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		DocumentID:   documentID,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// CanRetry reports whether the task has retry attempts left.
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing transitions the task to processing and counts the attempt.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Attempts++
	t.StartedAt = &now
	t.UpdatedAt = now
}

// MarkCompleted transitions the task to completed.
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed transitions the task to failed with the final error.
func (t *Task) MarkFailed(reason string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.Error = reason
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Retry returns the task to pending with a backoff delay that grows
// with the attempt count.
func (t *Task) Retry(reason string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.Error = reason
	t.StartedAt = nil
	t.UpdatedAt = now
	t.ScheduledFor = now.Add(time.Duration(t.Attempts) * 30 * time.Second)
}
