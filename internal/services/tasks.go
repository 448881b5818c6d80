package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-tracker/backend/internal/badge"
	"task-tracker/backend/internal/models"

	"github.com/oapi-codegen/nullable"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ReminderScheduler queues a follow-up check for a task approaching its due date.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, taskID int64, due time.Time) error
}

type TaskService interface {
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, []models.Comment, error)
	CreateTask(ctx context.Context, input models.NewTask) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

type TaskServiceImpl struct {
	db        *gorm.DB
	reminders ReminderScheduler
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTaskService builds a task service. reminders may be nil, in which case no
// reminder jobs are scheduled.
func NewTaskService(db *gorm.DB, reminders ReminderScheduler, logger zerolog.Logger) *TaskServiceImpl {
	return &TaskServiceImpl{
		db:        db,
		reminders: reminders,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	query := s.db.WithContext(ctx).Model(&models.Task{})
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}

	tasks := []models.Task{}
	if err := query.Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	for i := range tasks {
		badge.Annotate(now, &tasks[i])
	}
	return tasks, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, id int64) (*models.Task, []models.Comment, error) {
	db := s.db.WithContext(ctx)

	task, err := s.findTask(db, id)
	if err != nil {
		return nil, nil, err
	}

	comments, err := listComments(db, id)
	if err != nil {
		return nil, nil, err
	}

	return task, comments, nil
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, input models.NewTask) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalidInput("title is required")
	}

	priority := models.PriorityMedium
	if input.Priority != nil {
		priority = *input.Priority
	}
	if !models.IsValidPriority(priority) {
		return nil, invalidInput("priority must be one of Low, Medium, High")
	}

	db := s.db.WithContext(ctx)

	if input.AssigneeID != nil {
		if err := s.checkAssignee(db, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := models.Task{
		Title:       title,
		Description: input.Description,
		Priority:    priority,
		AssigneeID:  input.AssigneeID,
		Status:      models.StatusBacklog,
		DueDate:     input.DueDate,
	}
	if err := db.Create(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, invalidInput("assignee not found")
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	created, err := s.findTask(db, task.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("task_id", created.ID).Msg("task created")
	s.scheduleReminder(ctx, created)
	return created, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	db := s.db.WithContext(ctx)

	columns, err := s.patchColumns(db, patch)
	if err != nil {
		return nil, err
	}

	result := db.Model(&models.Task{}).Where("id = ?", id).UpdateColumns(columns)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
			return nil, invalidInput("assignee not found")
		}
		return nil, fmt.Errorf("failed to update task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("task not found")
	}

	updated, err := s.findTask(db, id)
	if err != nil {
		return nil, err
	}

	if patch.DueDate.IsSpecified() && !patch.DueDate.IsNull() {
		s.scheduleReminder(ctx, updated)
	}
	return updated, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&models.Task{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("task not found")
	}

	s.logger.Info().Int64("task_id", id).Msg("task deleted")
	return nil
}

// patchColumns validates a patch and maps it to column assignments. Only
// fields present in the patch appear in the result. Checks run in a fixed
// order so the first failing field decides the error: title, priority,
// assignee, status.
func (s *TaskServiceImpl) patchColumns(db *gorm.DB, patch models.TaskPatch) (map[string]interface{}, error) {
	if patch.IsEmpty() {
		return nil, invalidInput("no fields to update")
	}

	columns := make(map[string]interface{})

	if patch.Title.IsSpecified() {
		title, err := patch.Title.Get()
		title = strings.TrimSpace(title)
		if err != nil || title == "" {
			return nil, invalidInput("title must be a non-empty string")
		}
		columns["title"] = title
	}

	if patch.Description.IsSpecified() {
		// null clears; the column is NOT NULL.
		description, _ := patch.Description.Get()
		columns["description"] = description
	}

	if patch.Priority.IsSpecified() {
		priority, err := patch.Priority.Get()
		if err != nil || !models.IsValidPriority(priority) {
			return nil, invalidInput("priority must be one of Low, Medium, High")
		}
		columns["priority"] = priority
	}

	if patch.AssigneeID.IsSpecified() {
		assigneeID := valueOrNil(patch.AssigneeID)
		if assigneeID != nil {
			if err := s.checkAssignee(db, *assigneeID); err != nil {
				return nil, err
			}
		}
		columns["assignee_id"] = assigneeID
	}

	if patch.Status.IsSpecified() {
		status, err := patch.Status.Get()
		if err != nil || !models.IsValidStatus(status) {
			return nil, invalidInput("status must be one of Backlog, In Progress, Review, Done")
		}
		columns["status"] = status
	}

	if patch.DueDate.IsSpecified() {
		columns["due_date"] = valueOrNil(patch.DueDate)
	}

	return columns, nil
}

// valueOrNil returns nil for an explicit null, which gorm writes as NULL.
func valueOrNil[T any](field nullable.Nullable[T]) *T {
	value, err := field.Get()
	if err != nil {
		return nil
	}
	return &value
}

func (s *TaskServiceImpl) findTask(db *gorm.DB, id int64) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("task not found")
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	badge.Annotate(s.now(), &task)
	return &task, nil
}

func (s *TaskServiceImpl) checkAssignee(db *gorm.DB, assigneeID int64) error {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", assigneeID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up assignee: %w", err)
	}
	if count == 0 {
		return invalidInput("assignee not found")
	}
	return nil
}

func (s *TaskServiceImpl) scheduleReminder(ctx context.Context, task *models.Task) {
	if s.reminders == nil || task.DueDate == nil || task.Status == models.StatusDone {
		return
	}
	if err := s.reminders.ScheduleReminder(ctx, task.ID, *task.DueDate); err != nil {
		s.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("failed to schedule reminder")
	}
}
