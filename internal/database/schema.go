package database

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Schema creates the users, tasks and comments tables. Ensure runs the DDL at
// most once per Schema value; every statement is also safe to re-run.
type Schema struct {
	db      *gorm.DB
	dialect string

	once sync.Once
	err  error
}

func NewSchema(db *gorm.DB) *Schema {
	return &Schema{db: db, dialect: db.Dialector.Name()}
}

func (s *Schema) Ensure(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.create(ctx)
	})
	return s.err
}

func (s *Schema) create(ctx context.Context) error {
	statements, err := schemaStatements(s.dialect)
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	for i, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}

func schemaStatements(dialect string) ([]string, error) {
	switch dialect {
	case DialectPostgres:
		return postgresSchema, nil
	case DialectSQLite:
		return sqliteSchema, nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          BIGSERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority    TEXT NOT NULL CHECK (priority IN ('Low', 'Medium', 'High')),
		assignee_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		status      TEXT NOT NULL DEFAULT 'Backlog' CHECK (status IN ('Backlog', 'In Progress', 'Review', 'Done')),
		due_date    TIMESTAMPTZ NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_assignee_id_idx ON tasks (assignee_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         BIGSERIAL PRIMARY KEY,
		task_id    BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		author_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS comments_task_id_idx ON comments (task_id)`,
	`CREATE OR REPLACE FUNCTION tasks_touch_updated_at() RETURNS TRIGGER AS $fn$
	BEGIN
		NEW.updated_at = now();
		RETURN NEW;
	END;
	$fn$ LANGUAGE plpgsql`,
	`DO $do$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'tasks_set_updated_at') THEN
			CREATE TRIGGER tasks_set_updated_at
			BEFORE UPDATE ON tasks
			FOR EACH ROW EXECUTE FUNCTION tasks_touch_updated_at();
		END IF;
	END
	$do$`,
}

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority    TEXT NOT NULL CHECK (priority IN ('Low', 'Medium', 'High')),
		assignee_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		status      TEXT NOT NULL DEFAULT 'Backlog' CHECK (status IN ('Backlog', 'In Progress', 'Review', 'Done')),
		due_date    DATETIME NULL,
		created_at  DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
		updated_at  DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_assignee_id_idx ON tasks (assignee_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		author_id  INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		body       TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
	)`,
	`CREATE INDEX IF NOT EXISTS comments_task_id_idx ON comments (task_id)`,
	`CREATE TRIGGER IF NOT EXISTS tasks_set_updated_at
	AFTER UPDATE ON tasks
	FOR EACH ROW WHEN NEW.updated_at = OLD.updated_at
	BEGIN
		UPDATE tasks SET updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now') WHERE id = NEW.id;
	END`,
}
