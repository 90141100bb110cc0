package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Task mirrors the 'tasks' table.  Description is nullable and serializes
// to JSON null when absent.
type Task struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

const taskColumns = "id, user_id, title, description, is_completed, created_at, updated_at"

// rowScanner lets scanTask work for both QueryRow and Rows.
type rowScanner interface{ Scan(dest ...any) error }

func scanTask(rs rowScanner) (Task, error) {
	var t Task
	var desc sql.NullString
	if err := rs.Scan(&t.ID, &t.UserID, &t.Title, &desc, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	return t, nil
}

// Create inserts a task owned by userID.  The owner always comes from the
// authenticated identity resolved by the middleware, never from a request
// body.
func (r *TaskRepo) Create(ctx context.Context, userID uint64, title string, description *string) (Task, error) {
	t := Task{UserID: userID, Title: title, Description: description}
	err := r.DB.QueryRowContext(ctx,
		"INSERT INTO tasks (user_id, title, description) VALUES ($1,$2,$3) RETURNING id, is_completed, created_at, updated_at",
		userID, title, description).Scan(&t.ID, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// GetByID fetches a task by id alone, without an owner filter.  Ownership
// is compared by the caller so that "absent" (404) and "not yours" (403)
// stay distinguishable.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	return t, err
}

// ListByOwner returns the owner's tasks, newest first.  The owner predicate
// lives in the query itself; an unfiltered task list never leaves this
// layer.
func (r *TaskRepo) ListByOwner(ctx context.Context, userID uint64) ([]Task, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id=$1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update persists title, description and completion and bumps updated_at.
// The owner predicate is repeated in the statement even though callers have
// already verified ownership, so a row can never be mutated across owners.
func (r *TaskRepo) Update(ctx context.Context, t Task) (Task, error) {
	out, err := scanTask(r.DB.QueryRowContext(ctx,
		"UPDATE tasks SET title=$1, description=$2, is_completed=$3, updated_at=now() WHERE id=$4 AND user_id=$5 RETURNING "+taskColumns,
		t.Title, t.Description, t.IsCompleted, t.ID, t.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	return out, err
}

// Delete removes a task owned by userID.
func (r *TaskRepo) Delete(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM tasks WHERE id=$1 AND user_id=$2", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
