// Package scheduler polls the task store for due, unsent reminders and
// publishes one reminder event per match.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskflow/contracts/event"
	"taskflow/internal/model"
	"taskflow/pkg/config"
	"taskflow/pkg/metrics"
)

const (
	// DefaultTopic is the routing key reminder events are published under.
	DefaultTopic = "reminder.triggered"

	source = "scheduler"

	stopGracePeriod = 5 * time.Second
)

// TaskStore is the narrow slice of the externally owned task store the
// scheduler needs.
type TaskStore interface {
	ListPendingReminders(ctx context.Context) ([]model.Task, error)
	MarkRemindersSent(ctx context.Context, taskIDs []string) error
}

// EventPublisher is the publish collaborator contract. An error means the
// event may not have reached the broker and the task must stay eligible.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Scheduler is an explicit lifecycle object: stopped -> running -> stopped.
type Scheduler struct {
	interval time.Duration
	enabled  bool
	topic    string

	store     TaskStore
	publisher EventPublisher
	logger    *zap.Logger
	stopGrace time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg config.SchedulerConfig, store TaskStore, publisher EventPublisher, logger *zap.Logger) *Scheduler {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &Scheduler{
		interval:  time.Duration(cfg.PollInterval()) * time.Second,
		enabled:   cfg.IsEnabled(),
		topic:     topic,
		store:     store,
		publisher: publisher,
		logger:    logger,
		stopGrace: stopGracePeriod,
	}
}

// Start launches the background poll loop and returns immediately. It is a
// no-op when the scheduler is disabled or already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		s.logger.Info("Reminder scheduler is disabled")
		return
	}
	if s.running {
		s.logger.Warn("Reminder scheduler is already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)

	s.logger.Info("Reminder scheduler started",
		zap.Duration("poll_interval", s.interval),
		zap.String("topic", s.topic),
	)
}

// Stop cancels the loop and waits for it to exit within a bounded grace
// period. Calling Stop when not running is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()

	select {
	case <-s.done:
		s.logger.Info("Reminder scheduler stopped")
	case <-time.After(s.stopGrace):
		// The loop is still live, so the scheduler stays marked running;
		// starting another loop beside it is worse than a stuck stop.
		// A later Stop succeeds once the loop has exited.
		s.logger.Warn("Reminder scheduler did not stop within grace period",
			zap.Duration("grace_period", s.stopGrace),
		)
		return
	}

	s.running = false
	s.cancel = nil
	s.done = nil
}

// IsRunning reports whether the poll loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First scan runs immediately; later scans every interval.
	if err := s.PollOnce(ctx); err != nil {
		s.logger.Error("Reminder poll failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// No error escapes the loop.
			if err := s.PollOnce(ctx); err != nil {
				s.logger.Error("Reminder poll failed", zap.Error(err))
			}
		}
	}
}

// PollOnce runs a single scan: query eligible tasks, publish a reminder event
// per match, then batch-mark the published ones as sent. Tasks are processed
// sequentially and independently; a publish failure leaves that task eligible
// for the next scan and does not block the rest.
func (s *Scheduler) PollOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RecordPollDuration(time.Since(start))
	}()

	tasks, err := s.store.ListPendingReminders(ctx)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		s.logger.Debug("No pending reminders found")
		return nil
	}

	var sent []string
	for _, task := range tasks {
		payload := event.ReminderEvent{
			TaskID:   task.ID,
			Title:    task.Title,
			DueAt:    task.DueDate,
			RemindAt: task.RemindAt,
			UserID:   task.UserID,
		}

		env, err := event.New(event.TypeReminderTriggered, source, payload)
		if err != nil {
			s.logger.Error("Failed to build reminder envelope",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
			metrics.RemindersPublished.WithLabelValues("failed").Inc()
			continue
		}

		if err := s.publisher.Publish(s.topic, env); err != nil {
			// Flag stays false so the next scan retries this task.
			s.logger.Warn("Failed to publish reminder, will retry on next poll",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
			metrics.RemindersPublished.WithLabelValues("failed").Inc()
			continue
		}

		metrics.RemindersPublished.WithLabelValues("success").Inc()
		sent = append(sent, task.ID)
		s.logger.Info("Published reminder event",
			zap.String("task_id", task.ID),
			zap.String("title", task.Title),
			zap.String("event_id", env.ID),
		)
	}

	if len(sent) > 0 {
		if err := s.store.MarkRemindersSent(ctx, sent); err != nil {
			return err
		}
		s.logger.Info("Processed pending reminders",
			zap.Int("published", len(sent)),
			zap.Int("matched", len(tasks)),
		)
	}

	return nil
}
