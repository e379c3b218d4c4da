package jobs

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// FileKind tells the executor how to parse the payload file.
type FileKind string

const (
	FileKindCodex FileKind = "codex"
	FileKindBible FileKind = "bible"
)

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   JobPayload
}

type JobPayload struct {
	FilePath  string   `json:"file_path"`
	FileKind  FileKind `json:"file_kind"`
	Workspace string   `json:"workspace"`
}

// IndexJob tracks one file through the indexing pipeline.
type IndexJob struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	DedupeKey string     `json:"dedupe_key"`
	Payload   JobPayload `json:"payload"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
