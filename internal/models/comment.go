package models

import "time"

// Comment rows are append-only and disappear with their task.
type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	TaskID    int64     `json:"task_id" gorm:"not null"`
	AuthorID  int64     `json:"author_id" gorm:"not null"`
	Body      string    `json:"body" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
