package models

import "time"

// QueueStatus tracks a queue entry through the till workflow. Entries never
// regress from completed.
type QueueStatus string

const (
	QueueStatusWaiting    QueueStatus = "waiting"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
)

// QueueEntry is a volatile wrapper around a student awaiting payment. It lives
// only in process memory; a restart or explicit clear destroys it.
type QueueEntry struct {
	StudentID   string      `json:"student_id"`
	AdmissionNo string      `json:"admission_number"`
	FullName    string      `json:"full_name"`
	ClassName   string      `json:"class_name"`
	FeeRecordID *string     `json:"fee_record_id,omitempty"`
	Balance     int64       `json:"balance"`
	Status      QueueStatus `json:"status"`
	EnqueuedAt  time.Time   `json:"enqueued_at"`
}

// QueueSnapshot is the till's view of its queue.
type QueueSnapshot struct {
	TillID  string       `json:"till_id"`
	Entries []QueueEntry `json:"entries"`
	Current *QueueEntry  `json:"current,omitempty"`
}
