package worker

import (
	"context"
	"errors"

	"task-tracker/backend/internal/badge"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/queue"
	"task-tracker/backend/internal/services"

	"github.com/rs/zerolog"
)

type TaskReader interface {
	GetTask(ctx context.Context, id int64) (*models.Task, []models.Comment, error)
}

// NewReminderHandler re-reads the task behind a reminder job and warns when
// it is At Risk or Overdue. Reminders for deleted, finished or rescheduled
// tasks are dropped quietly.
func NewReminderHandler(tasks TaskReader, logger zerolog.Logger) JobHandler {
	return func(ctx context.Context, job *queue.Job) error {
		var payload queue.ReminderPayload
		if err := job.DecodePayload(&payload); err != nil {
			return err
		}

		log := logger.With().Int64("task_id", payload.TaskID).Logger()

		task, _, err := tasks.GetTask(ctx, payload.TaskID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				log.Debug().Msg("reminder for deleted task skipped")
				return nil
			}
			return err
		}

		if task.DueDate == nil || !task.DueDate.Equal(payload.DueDate) {
			log.Debug().Msg("reminder superseded by a due date change")
			return nil
		}

		switch badge.Badge(task.StatusBadge) {
		case badge.AtRisk, badge.Overdue:
			event := log.Warn().
				Str("title", task.Title).
				Str("status", task.Status).
				Str("badge", task.StatusBadge).
				Time("due_date", *task.DueDate)
			if task.AssigneeID != nil {
				event = event.Int64("assignee_id", *task.AssigneeID)
			}
			event.Msg("task needs attention")
		default:
			log.Debug().Str("badge", task.StatusBadge).Msg("task on track")
		}
		return nil
	}
}
