package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"task-tracker/backend/internal/queue"

	"github.com/rs/zerolog"
)

type JobHandler func(ctx context.Context, job *queue.Job) error

var errNoHandler = errors.New("no handler registered")

type Worker struct {
	broker   *queue.Broker
	handlers map[queue.JobType]JobHandler
	queues   []string
	logger   zerolog.Logger

	concurrency  int
	pollInterval time.Duration
	jobTimeout   time.Duration
	retryBase    time.Duration
	promoteBatch int64
	now          func() time.Time

	mu     sync.RWMutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type WorkerConfig struct {
	Broker       *queue.Broker
	Concurrency  int
	PollInterval time.Duration
	Queues       []string
	JobTimeout   time.Duration
	// RetryBase is the first retry delay; each further attempt doubles it.
	RetryBase time.Duration
	Logger    zerolog.Logger
}

func NewWorker(config WorkerConfig) *Worker {
	w := &Worker{
		broker:       config.Broker,
		handlers:     make(map[queue.JobType]JobHandler),
		queues:       config.Queues,
		logger:       config.Logger,
		concurrency:  config.Concurrency,
		pollInterval: config.PollInterval,
		jobTimeout:   config.JobTimeout,
		retryBase:    config.RetryBase,
		promoteBatch: 100,
		now:          time.Now,
	}

	if len(w.queues) == 0 {
		w.queues = []string{queue.QueueReminders, queue.QueueRetry}
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 5 * time.Second
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 30 * time.Second
	}
	if w.retryBase <= 0 {
		w.retryBase = time.Minute
	}
	return w
}

func (w *Worker) RegisterHandler(jobType queue.JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches the consumer goroutines and the scheduler that promotes
// delayed jobs. They run until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.logger.Info().Int("concurrency", w.concurrency).Strs("queues", w.queues).Msg("starting worker")

	w.wg.Add(1)
	go w.schedulerLoop(ctx)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx)
	}
}

func (w *Worker) Stop() {
	w.logger.Info().Msg("stopping worker")
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info().Msg("worker stopped")
}

func (w *Worker) schedulerLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.broker.PromoteDue(ctx, w.now(), w.promoteBatch); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("failed to promote scheduled jobs")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) workerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.processNextJob(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error().Err(err).Msg("error processing job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (w *Worker) processNextJob(ctx context.Context) error {
	job, _, err := w.broker.Pop(ctx, w.pollInterval, w.queues...)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	// Popped early, e.g. pushed straight onto a list with a future time.
	if job.ProcessAt.After(w.now()) {
		return w.broker.Push(ctx, job, w.now())
	}

	return w.executeJob(ctx, job)
}

func (w *Worker) executeJob(ctx context.Context, job *queue.Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	log := w.logger.With().Str("job_id", job.ID).Str("type", string(job.Type)).Logger()

	if !exists {
		log.Error().Msg("no handler registered for job type")
		return w.broker.Bury(ctx, job, fmt.Errorf("%w for job type %s", errNoHandler, job.Type), w.now())
	}

	log.Debug().Int("attempt", job.Attempts+1).Msg("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	err := handler(jobCtx, job)
	if err == nil {
		log.Debug().Msg("job completed")
		return nil
	}

	job.Attempts++
	if job.Attempts < job.MaxTries {
		log.Warn().Err(err).Int("attempt", job.Attempts).Int("max_tries", job.MaxTries).Msg("job failed, retrying")
		return w.retryJob(ctx, job)
	}

	log.Error().Err(err).Int("attempts", job.Attempts).Msg("job failed permanently")
	return w.broker.Bury(ctx, job, err, w.now())
}

func (w *Worker) retryJob(ctx context.Context, job *queue.Job) error {
	delay := w.retryBase * time.Duration(1<<(job.Attempts-1))
	now := w.now()
	job.ProcessAt = now.Add(delay)
	job.Queue = queue.QueueRetry

	return w.broker.Push(ctx, job, now)
}
