package ipc

import (
	"mxf2proxy/internal/deps"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/queue"
)

// ServiceName is the RPC receiver name registered by the server.
const ServiceName = "MXF2Proxy"

// SubmitRequest enqueues a card folder or clip.
type SubmitRequest struct {
	Path string `json:"path"`
}

// SubmitResponse reports the queued job. Added is false when the path was
// already active or queued.
type SubmitResponse struct {
	Job   queue.Job `json:"job"`
	Added bool      `json:"added"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon and queue status.
type StatusResponse struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	Active       *queue.Job    `json:"active"`
	Queued       []queue.Job   `json:"queued"`
	Outstanding  int           `json:"outstanding"`
	Status       string        `json:"status"`
	Finished     int           `json:"finished"`
	Prompts      int           `json:"prompts"`
	Dependencies []deps.Status `json:"dependencies"`
	DatabasePath string        `json:"database_path"`
	LockPath     string        `json:"lock_path"`
	CardMonitor  bool          `json:"card_monitor"`
}

// HistoryRequest lists recent batches.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains batches, newest first.
type HistoryResponse struct {
	Jobs []history.JobRecord `json:"jobs"`
}

// JobClipsRequest fetches one batch with its clips.
type JobClipsRequest struct {
	ID string `json:"id"`
}

// JobClipsResponse carries a batch and its clip outcomes.
type JobClipsResponse struct {
	Job   history.JobRecord    `json:"job"`
	Clips []history.ClipRecord `json:"clips"`
}

// PromptsRequest lists pending prompts.
type PromptsRequest struct{}

// PromptsResponse contains pending prompts, oldest first.
type PromptsResponse struct {
	Prompts []prompt.Pending `json:"prompts"`
}

// AnswerRequest resolves a pending prompt.
type AnswerRequest struct {
	ID     string        `json:"id"`
	Answer prompt.Answer `json:"answer"`
}

// AnswerResponse acknowledges an answer.
type AnswerResponse struct {
	Accepted bool `json:"accepted"`
}

// LogTailRequest reads the daemon log.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
