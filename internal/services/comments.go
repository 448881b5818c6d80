package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task-tracker/backend/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type CommentService interface {
	AddComment(ctx context.Context, taskID, authorID int64, body string) (*models.Comment, error)
}

type CommentServiceImpl struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewCommentService(db *gorm.DB, logger zerolog.Logger) *CommentServiceImpl {
	return &CommentServiceImpl{db: db, logger: logger}
}

func (s *CommentServiceImpl) AddComment(ctx context.Context, taskID, authorID int64, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalidInput("comment body is required")
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up task: %w", err)
	}
	if count == 0 {
		return nil, notFound("task not found")
	}

	comment := models.Comment{TaskID: taskID, AuthorID: authorID, Body: body}
	if err := db.Create(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, missingCommentReference(db, taskID)
		}
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.logger.Debug().Int64("task_id", taskID).Int64("comment_id", comment.ID).Msg("comment added")
	return &comment, nil
}

// missingCommentReference reports which side of a rejected comment insert
// is gone: the task, deleted since the existence check, or the author.
func missingCommentReference(db *gorm.DB, taskID int64) error {
	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up task: %w", err)
	}
	if count == 0 {
		return notFound("task not found")
	}
	return unauthorized("user no longer exists")
}

// listComments returns a task's comments oldest first.
func listComments(db *gorm.DB, taskID int64) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := db.Where("task_id = ?", taskID).Order("id ASC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
