package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"task-tracker/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

func NewRedisClient(c *config.Config) *redis.Client {
	cfg := c.Redis
	return redis.NewClient(&redis.Options{
		Addr:         c.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		// Socket deadlines follow the caller's context.
		ContextTimeoutEnabled: true,
	})
}

// Broker holds the Redis operations shared by the producer and the worker.
type Broker struct {
	client *redis.Client
}

func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

// Push stores a job: into the scheduled set when it is not yet due at now,
// otherwise at the tail of its queue.
func (b *Broker) Push(ctx context.Context, job *Job, now time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if job.ProcessAt.After(now) {
		err = b.client.ZAdd(ctx, ScheduledSet, redis.Z{
			Score:  float64(job.ProcessAt.UnixMilli()),
			Member: data,
		}).Err()
	} else {
		err = b.client.RPush(ctx, job.Queue, data).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to push job %s: %w", job.ID, err)
	}
	return nil
}

// PromoteDue moves up to limit scheduled jobs that are due at now onto their
// queues. A job is claimed by whoever removes it from the set, so concurrent
// callers never promote the same job twice.
func (b *Broker) PromoteDue(ctx context.Context, now time.Time, limit int64) (int, error) {
	members, err := b.client.ZRangeByScore(ctx, ScheduledSet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read scheduled jobs: %w", err)
	}

	promoted := 0
	for _, member := range members {
		removed, err := b.client.ZRem(ctx, ScheduledSet, member).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to claim scheduled job: %w", err)
		}
		if removed == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			return promoted, fmt.Errorf("failed to unmarshal scheduled job: %w", err)
		}
		if err := b.client.RPush(ctx, job.Queue, member).Err(); err != nil {
			return promoted, fmt.Errorf("failed to promote job %s: %w", job.ID, err)
		}
		promoted++
	}
	return promoted, nil
}

// Pop blocks for up to timeout waiting for a job on any of the queues. It
// returns (nil, "", nil) when the timeout passes with nothing to do.
func (b *Broker) Pop(ctx context.Context, timeout time.Duration, queues ...string) (*Job, string, error) {
	result, err := b.client.BLPop(ctx, timeout, queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return nil, "", fmt.Errorf("invalid job result")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, result[0], fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.Queue == "" {
		job.Queue = result[0]
	}
	return &job, result[0], nil
}

func (b *Broker) Bury(ctx context.Context, job *Job, jobErr error, now time.Time) error {
	data, err := json.Marshal(DeadJob{Job: job, Error: jobErr.Error(), FailedAt: now})
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return b.client.RPush(ctx, QueueDead, data).Err()
}

func (b *Broker) QueueSize(ctx context.Context, queue string) (int64, error) {
	return b.client.LLen(ctx, queue).Result()
}

func (b *Broker) ScheduledSize(ctx context.Context) (int64, error) {
	return b.client.ZCard(ctx, ScheduledSet).Result()
}

func (b *Broker) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return b.client.Ping(ctx).Err()
}

func (b *Broker) Stats(ctx context.Context) map[string]interface{} {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := map[string]interface{}{}
	for _, queue := range []string{QueueReminders, QueueRetry, QueueDead} {
		size, err := b.QueueSize(ctx, queue)
		if err != nil {
			return map[string]interface{}{"error": err.Error()}
		}
		stats[queue] = size
	}

	scheduled, err := b.ScheduledSize(ctx)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	stats[ScheduledSet] = scheduled

	poolStats := b.client.PoolStats()
	stats["pool_hits"] = poolStats.Hits
	stats["pool_misses"] = poolStats.Misses
	stats["pool_timeouts"] = poolStats.Timeouts
	stats["pool_total"] = poolStats.TotalConns
	stats["pool_idle"] = poolStats.IdleConns

	return stats
}

func (b *Broker) Close() error {
	return b.client.Close()
}
