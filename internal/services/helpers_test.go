package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/services"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	pool, err := database.NewDatabasePool(&database.PoolConfig{DSN: "file::memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, database.NewSchema(pool.DB).Ensure(context.Background()))
	return pool.DB
}

func newTestCredentials() *services.Credentials {
	return services.NewCredentials(services.CredentialsConfig{
		Secret:     testSecret,
		Issuer:     "task-tracker-test",
		TokenTTL:   time.Hour,
		BCryptCost: bcrypt.MinCost,
	})
}

type scheduledReminder struct {
	TaskID int64
	Due    time.Time
}

type recordingScheduler struct {
	mu        sync.Mutex
	reminders []scheduledReminder
	err       error
}

func (r *recordingScheduler) ScheduleReminder(ctx context.Context, taskID int64, due time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders = append(r.reminders, scheduledReminder{TaskID: taskID, Due: due})
	return r.err
}

func (r *recordingScheduler) scheduled() []scheduledReminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scheduledReminder(nil), r.reminders...)
}
