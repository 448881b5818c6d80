// Package queue moves background jobs through Redis: ready jobs wait in
// lists, delayed jobs in a sorted set scored by their due time.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobType string

const (
	JobTypeTaskReminder JobType = "task_reminder"
)

const (
	QueueReminders = "reminders"
	QueueRetry     = "retry_queue"
	QueueDead      = "dead_queue"

	// ScheduledSet holds jobs whose ProcessAt is in the future.
	ScheduledSet = "scheduled"
)

const DefaultMaxTries = 3

type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Queue     string          `json:"queue"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	MaxTries  int             `json:"max_tries"`
	CreatedAt time.Time       `json:"created_at"`
	ProcessAt time.Time       `json:"process_at"`
}

// ReminderPayload identifies the task a reminder job re-checks.
type ReminderPayload struct {
	TaskID  int64     `json:"task_id"`
	DueDate time.Time `json:"due_date"`
}

// DecodePayload unmarshals the job payload into dest.
func (j *Job) DecodePayload(dest interface{}) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("job %s has no payload", j.ID)
	}
	if err := json.Unmarshal(j.Payload, dest); err != nil {
		return fmt.Errorf("failed to decode payload of job %s: %w", j.ID, err)
	}
	return nil
}

// DeadJob is what lands in the dead queue once a job exhausts its tries.
type DeadJob struct {
	Job      *Job      `json:"original_job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
