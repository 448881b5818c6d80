package models

import (
	"time"

	"github.com/oapi-codegen/nullable"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

const (
	StatusBacklog    = "Backlog"
	StatusInProgress = "In Progress"
	StatusReview     = "Review"
	StatusDone       = "Done"
)

var (
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
	Statuses   = []string{StatusBacklog, StatusInProgress, StatusReview, StatusDone}
)

type Task struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description" gorm:"not null;default:''"`
	Priority    string     `json:"priority" gorm:"not null"`
	AssigneeID  *int64     `json:"assignee_id"`
	Status      string     `json:"status" gorm:"not null;default:'Backlog'"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Derived on every read, never persisted.
	StatusBadge string `json:"statusBadge" gorm:"-"`
}

// TaskFilter is a conjunction of exact-match conditions; nil fields are ignored.
type TaskFilter struct {
	AssigneeID *int64
	Priority   *string
}

// NewTask is the create payload. Priority is a pointer so that an explicitly
// supplied empty value can be told apart from an omitted one.
type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    *string    `json:"priority"`
	AssigneeID  *int64     `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

// TaskPatch carries a partial update. An omitted field is unspecified; an
// explicit JSON null is specified and null.
type TaskPatch struct {
	Title       nullable.Nullable[string]    `json:"title"`
	Description nullable.Nullable[string]    `json:"description"`
	Priority    nullable.Nullable[string]    `json:"priority"`
	AssigneeID  nullable.Nullable[int64]     `json:"assigneeId"`
	Status      nullable.Nullable[string]    `json:"status"`
	DueDate     nullable.Nullable[time.Time] `json:"dueDate"`
}

func (p TaskPatch) IsEmpty() bool {
	return !p.Title.IsSpecified() &&
		!p.Description.IsSpecified() &&
		!p.Priority.IsSpecified() &&
		!p.AssigneeID.IsSpecified() &&
		!p.Status.IsSpecified() &&
		!p.DueDate.IsSpecified()
}

func IsValidPriority(priority string) bool {
	return contains(Priorities, priority)
}

func IsValidStatus(status string) bool {
	return contains(Statuses, status)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
