package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskflow/internal/model"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// ListPendingReminders returns tasks whose reminder is due and unsent.
func (r *TaskRepository) ListPendingReminders(ctx context.Context) ([]model.Task, error) {
	query := `
        SELECT id, user_id, title, due_date, remind_at
        FROM tasks
        WHERE remind_at IS NOT NULL
          AND remind_at <= NOW()
          AND reminder_sent = FALSE
          AND is_completed = FALSE
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.DueDate,
			&t.RemindAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkRemindersSent flips reminder_sent for the given tasks in one statement.
// The flag is never reset to false here; a marked task stays marked.
func (r *TaskRepository) MarkRemindersSent(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}

	query := `
        UPDATE tasks
        SET reminder_sent = TRUE
        WHERE id = ANY($1)
    `
	result, err := r.db.Exec(ctx, query, taskIDs)
	if err != nil {
		return fmt.Errorf("failed to mark reminders sent: %w", err)
	}

	r.logger.Info("Marked reminders as sent",
		zap.Int64("count", result.RowsAffected()),
	)
	return nil
}
