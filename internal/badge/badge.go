// Package badge derives a task's urgency label from its status and due date.
package badge

import (
	"time"

	"task-tracker/backend/internal/models"
)

type Badge string

const (
	OnTrack Badge = "On Track"
	AtRisk  Badge = "At Risk"
	Overdue Badge = "Overdue"
)

// AtRiskWindow is how close to the due date an open task becomes At Risk.
const AtRiskWindow = 24 * time.Hour

// Compute applies the rules in order: no due date, done, past due, inside the
// at-risk window. A finished task is never Overdue or At Risk.
func Compute(status string, due *time.Time, now time.Time) Badge {
	if due == nil {
		return OnTrack
	}
	if status == models.StatusDone {
		return OnTrack
	}
	if now.After(*due) {
		return Overdue
	}
	if due.Sub(now) <= AtRiskWindow {
		return AtRisk
	}
	return OnTrack
}

// Annotate sets StatusBadge on each task in place.
func Annotate(now time.Time, tasks ...*models.Task) {
	for _, t := range tasks {
		t.StatusBadge = string(Compute(t.Status, t.DueDate, now))
	}
}
