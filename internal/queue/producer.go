package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

// ReminderLead is how long before a task's due date its reminder fires.
const ReminderLead = 24 * time.Hour

// DefaultEnqueueTimeout bounds a single push. Reminders are scheduled while a
// request is waiting, so an unreachable Redis must fail fast.
const DefaultEnqueueTimeout = 500 * time.Millisecond

type Producer struct {
	broker  *Broker
	breaker *CircuitBreaker
	metrics *QueueMetrics
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewProducer(broker *Broker, breaker *CircuitBreaker, logger zerolog.Logger) *Producer {
	if breaker == nil {
		breaker = NewCircuitBreaker(nil)
	}
	return &Producer{
		broker:  broker,
		breaker: breaker,
		metrics: NewQueueMetrics(),
		logger:  logger,
		timeout: DefaultEnqueueTimeout,
		now:     time.Now,
	}
}

// SetEnqueueTimeout overrides DefaultEnqueueTimeout; non-positive values are ignored.
func (p *Producer) SetEnqueueTimeout(timeout time.Duration) {
	if timeout > 0 {
		p.timeout = timeout
	}
}

func (p *Producer) Enqueue(ctx context.Context, queue string, jobType JobType, payload interface{}) (*Job, error) {
	return p.EnqueueAt(ctx, queue, jobType, payload, p.now())
}

func (p *Producer) EnqueueAt(ctx context.Context, queue string, jobType JobType, payload interface{}, processAt time.Time) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}

	now := p.now()
	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Queue:     queue,
		Payload:   data,
		MaxTries:  DefaultMaxTries,
		CreatedAt: now,
		ProcessAt: processAt,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.breaker.Execute(func() error {
		return p.broker.Push(ctx, job, now)
	})
	if err != nil {
		p.metrics.RecordDropped()
		return nil, err
	}

	p.metrics.RecordEnqueued(processAt.After(now))
	p.logger.Debug().
		Str("job_id", job.ID).
		Str("type", string(jobType)).
		Time("process_at", processAt).
		Msg("job enqueued")
	return job, nil
}

// ScheduleReminder queues a reminder for ReminderLead before due, or right
// away when that moment has already passed.
func (p *Producer) ScheduleReminder(ctx context.Context, taskID int64, due time.Time) error {
	processAt := due.Add(-ReminderLead)
	if now := p.now(); processAt.Before(now) {
		processAt = now
	}

	_, err := p.EnqueueAt(ctx, QueueReminders, JobTypeTaskReminder, ReminderPayload{TaskID: taskID, DueDate: due}, processAt)
	if err != nil {
		return fmt.Errorf("failed to schedule reminder for task %d: %w", taskID, err)
	}
	return nil
}

func (p *Producer) Metrics() QueueMetrics {
	return p.metrics.Snapshot()
}

func (p *Producer) Health(ctx context.Context) error {
	return p.broker.Health(ctx)
}

func (p *Producer) Stats(ctx context.Context) map[string]interface{} {
	snapshot := p.metrics.Snapshot()
	return map[string]interface{}{
		"queues":          p.broker.Stats(ctx),
		"circuit_breaker": p.breaker.Stats(),
		"enqueued":        snapshot.Enqueued,
		"scheduled":       snapshot.Scheduled,
		"dropped":         snapshot.Dropped,
		"drop_rate":       p.metrics.DropRate(),
	}
}
