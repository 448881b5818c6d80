package queue

import (
	"sync/atomic"
	"time"
)

type QueueMetrics struct {
	Enqueued  int64 `json:"enqueued"`
	Scheduled int64 `json:"scheduled"`
	Dropped   int64 `json:"dropped"`
	StartTime int64 `json:"start_time"`
}

func NewQueueMetrics() *QueueMetrics {
	return &QueueMetrics{
		StartTime: time.Now().Unix(),
	}
}

func (m *QueueMetrics) RecordEnqueued(delayed bool) {
	atomic.AddInt64(&m.Enqueued, 1)
	if delayed {
		atomic.AddInt64(&m.Scheduled, 1)
	}
}

func (m *QueueMetrics) RecordDropped() {
	atomic.AddInt64(&m.Dropped, 1)
}

func (m *QueueMetrics) Snapshot() QueueMetrics {
	return QueueMetrics{
		Enqueued:  atomic.LoadInt64(&m.Enqueued),
		Scheduled: atomic.LoadInt64(&m.Scheduled),
		Dropped:   atomic.LoadInt64(&m.Dropped),
		StartTime: m.StartTime,
	}
}

// DropRate is the percentage of enqueue attempts that never reached Redis.
func (m *QueueMetrics) DropRate() float64 {
	enqueued := atomic.LoadInt64(&m.Enqueued)
	dropped := atomic.LoadInt64(&m.Dropped)
	total := enqueued + dropped

	if total == 0 {
		return 0.0
	}

	return float64(dropped) / float64(total) * 100.0
}
