package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type PoolConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
	SlowThreshold   time.Duration
	Logger          *zerolog.Logger
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		LogLevel:        logger.Warn,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// DatabasePool owns the process-wide gorm handle. It is opened once at startup,
// injected into the services and closed on shutdown.
type DatabasePool struct {
	DB      *gorm.DB
	Dialect string
	config  *PoolConfig
}

func (c *PoolConfig) validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("database DSN is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("connection limits must not be negative")
	}
	if c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 {
		return errors.New("connection lifetimes must not be negative")
	}
	return nil
}

func NewDatabasePool(config *PoolConfig) (*DatabasePool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	dialector, dialect := openDialector(config.DSN)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(config),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLite allows a single writer, and an in-memory database lives only as
		// long as its one connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	} else {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	return &DatabasePool{DB: db, Dialect: dialect, config: config}, nil
}

// openDialector picks the driver from the DSN. "sqlite://" and "file:" DSNs
// go to SQLite with foreign keys switched on; everything else is Postgres.
func openDialector(dsn string) (gorm.Dialector, string) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(withForeignKeys(strings.TrimPrefix(dsn, "sqlite://"))), DialectSQLite
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return sqlite.Open(withForeignKeys(dsn)), DialectSQLite
	default:
		return postgres.Open(dsn), DialectPostgres
	}
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if dsn == ":memory:" {
		dsn = "file::memory:"
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func newGormLogger(config *PoolConfig) logger.Interface {
	if config.Logger == nil {
		return logger.Default.LogMode(config.LogLevel)
	}
	return logger.New(config.Logger, logger.Config{
		SlowThreshold:             config.SlowThreshold,
		LogLevel:                  config.LogLevel,
		IgnoreRecordNotFoundError: true,
	})
}

func (p *DatabasePool) Stats() map[string]interface{} {
	if p.DB == nil {
		return map[string]interface{}{"error": "database not initialized"}
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"dialect":             p.Dialect,
		"max_open_conns":      stats.MaxOpenConnections,
		"open_conns":          stats.OpenConnections,
		"in_use":              stats.InUse,
		"idle":                stats.Idle,
		"wait_count":          stats.WaitCount,
		"wait_duration":       stats.WaitDuration.String(),
		"max_idle_closed":     stats.MaxIdleClosed,
		"max_lifetime_closed": stats.MaxLifetimeClosed,
	}
}

func (p *DatabasePool) Health(ctx context.Context) error {
	if p.DB == nil {
		return errors.New("database not initialized")
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *DatabasePool) Close() error {
	if p.DB == nil {
		return nil
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
