package entity

import "time"

// QueueName identifies one of the two collection queues.
type QueueName string

const (
	QueueReference QueueName = "reference"
	QueueClient    QueueName = "client"
)

func ParseQueueName(s string) (QueueName, bool) {
	switch q := QueueName(s); q {
	case QueueReference, QueueClient:
		return q, true
	}
	return "", false
}

// JobState is where a job currently sits in its queue.
type JobState string

const (
	JobWaiting   JobState = "waiting"
	JobDelayed   JobState = "delayed"
	JobActive    JobState = "active"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobPayload is what a collection worker needs to audit one page.
type JobPayload struct {
	PageURL   string `json:"pageUrl"`
	PageID    string `json:"pageId"`
	ChannelID string `json:"channelId"`
}

// Job is a queue message. It lives only in the queue's own store.
type Job struct {
	ID           string     `json:"id"`
	Queue        QueueName  `json:"queue"`
	Name         string     `json:"name"`
	Payload      JobPayload `json:"payload"`
	RepeatKey    string     `json:"repeat_key,omitempty"`
	Attempts     int        `json:"attempts"`
	AttemptsMade int        `json:"attempts_made"`
	StalledCount int        `json:"stalled_count,omitempty"`
	FailedReason string     `json:"failed_reason,omitempty"`
	State        JobState   `json:"state"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RepeatDefinition is a registered recurring job.
type RepeatDefinition struct {
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	Pattern   string     `json:"pattern"`
	Payload   JobPayload `json:"payload"`
	NextJobID string     `json:"next_job_id"`
	NextRunAt time.Time  `json:"next_run_at"`
}
