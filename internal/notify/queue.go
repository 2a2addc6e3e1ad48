package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/xid"

	// Registers the "sqlite" driver used for the task database.
	_ "modernc.org/sqlite"
)

// PasswordResetTask is the persisted form of one reset notification.
type PasswordResetTask struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// Config returns the queue configuration for password-reset tasks.
func (t PasswordResetTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "password_reset",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PasswordResetProcessor hands each task to sink.
func PasswordResetProcessor(sink Sink) backlite.QueueProcessor[PasswordResetTask] {
	return func(ctx context.Context, task PasswordResetTask) error {
		if err := sink.SendPasswordReset(ctx, task.Email, task.Token); err != nil {
			return fmt.Errorf("notify: delivering password reset %s: %w", task.ID, err)
		}
		return nil
	}
}

// QueueConfig tunes the backlite client.
type QueueConfig struct {
	Workers         int
	ReleaseAfter    time.Duration
	CleanupInterval time.Duration
}

// DefaultQueueConfig returns settings suited to a single small server.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:         2,
		ReleaseAfter:    5 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

// Queue is a Sink that enqueues notifications and delivers them through the
// wrapped sink on backlite workers.
type Queue struct {
	client *backlite.Client
	db     *sql.DB
	logger *slog.Logger
	cfg    QueueConfig

	mu      sync.Mutex
	started bool
}

// TasksDBPath derives the task database path from the main database path:
// data/bookifyme.db → data/bookifyme-tasks.db.
func TasksDBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"-tasks"+ext)
}

// NewQueue opens the task database next to mainDBPath, installs the backlite
// schema and registers the password-reset queue. Call Start to begin
// processing.
func NewQueue(mainDBPath string, cfg QueueConfig, sink Sink, logger *slog.Logger) (*Queue, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultQueueConfig().Workers
	}
	if cfg.ReleaseAfter <= 0 {
		cfg.ReleaseAfter = DefaultQueueConfig().ReleaseAfter
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultQueueConfig().CleanupInterval
	}

	path := TasksDBPath(mainDBPath)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("notify: opening task database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Workers + 2)
	db.SetMaxIdleConns(cfg.Workers)
	db.SetConnMaxLifetime(time.Hour)

	taskLogger := logger.With(slog.String("component", "tasks"))
	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          taskLogger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("notify: creating task client: %w", err)
	}
	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("notify: installing task schema: %w", err)
	}

	client.Register(backlite.NewQueue(PasswordResetProcessor(sink)))

	return &Queue{client: client, db: db, logger: taskLogger, cfg: cfg}, nil
}

// SendPasswordReset persists the notification and returns once it is saved.
func (q *Queue) SendPasswordReset(ctx context.Context, email, token string) error {
	task := PasswordResetTask{ID: xid.New().String(), Email: email, Token: token}
	if _, err := q.client.Add(task).Save(); err != nil {
		return fmt.Errorf("notify: enqueueing password reset: %w", err)
	}
	q.logger.DebugContext(ctx, "password reset enqueued", slog.String("task", task.ID))
	return nil
}

// Start launches the background workers and returns. Calling it twice is a
// no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	q.logger.Info("task queue started", slog.Int("workers", q.cfg.Workers))
	q.client.Start(ctx)
}

// Stop waits for running tasks until ctx expires and reports whether every
// worker finished in time.
func (q *Queue) Stop(ctx context.Context) bool {
	q.mu.Lock()
	started := q.started
	q.started = false
	q.mu.Unlock()
	if !started {
		return true
	}

	ok := q.client.Stop(ctx)
	if ok {
		q.logger.Info("task queue stopped")
	} else {
		q.logger.Warn("task queue stopped before all tasks completed")
	}
	return ok
}

// Close releases the task database. Call it after Stop.
func (q *Queue) Close() error {
	return q.db.Close()
}
