package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/queue"
	"github.com/todoapp/todo-api/internal/repository"
)

// TaskEventPublisher sends a task activity event to the broker.  Nil
// disables event publishing entirely.
type TaskEventPublisher func(ctx context.Context, ev queue.TaskEvent) error

// TaskHandler bundles dependencies for the task CRUD endpoints.  Every
// route it serves sits behind the JWT middleware, so an authenticated user
// id is always present in the context.
type TaskHandler struct {
	Tasks   *repository.TaskRepo
	Publish TaskEventPublisher
	Log     *zap.Logger
}

func NewTaskHandler(tasks *repository.TaskRepo, publish TaskEventPublisher, log *zap.Logger) *TaskHandler {
	return &TaskHandler{Tasks: tasks, Publish: publish, Log: log}
}

// ----- DTOs -----

// taskCreateReq deliberately has no owner field: a user_id supplied in the
// request body is dropped at bind time and the owner is always taken from
// the authenticated identity.
type taskCreateReq struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// taskUpdateReq supports partial updates; nil fields are left untouched.
type taskUpdateReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"is_completed"`
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req taskCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > maxTitleLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must be 1-200 characters"})
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description must be at most 1000 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, err := h.Tasks.Create(ctx, uid, title, req.Description)
	if err != nil {
		h.Log.Error("create task failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create task failed"})
	}
	h.publishEvent(queue.TaskCreated, t)
	return c.JSON(http.StatusCreated, t)
}

// ListTasks handles GET /api/tasks.  The owner filter is part of the SQL
// query, so the response can never aggregate another user's rows; an empty
// result is an empty list, not an error.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, err := h.Tasks.ListByOwner(ctx, uid)
	if err != nil {
		h.Log.Error("list tasks failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, items)
}

// UpdateTask handles PUT /api/tasks/:id with partial updates.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req taskUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" || len(trimmed) > maxTitleLen {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must be 1-200 characters"})
		}
		req.Title = &trimmed
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description must be at most 1000 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, ok := h.loadOwnedTask(c, ctx, uid)
	if !ok {
		return nil
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.IsCompleted != nil {
		t.IsCompleted = *req.IsCompleted
	}

	updated, err := h.Tasks.Update(ctx, t)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		h.Log.Error("update task failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, updated)
}

// ToggleComplete handles PATCH /api/tasks/:id/complete.  It applies the
// same absent-vs-foreign disclosure policy as update and delete.
func (h *TaskHandler) ToggleComplete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, ok := h.loadOwnedTask(c, ctx, uid)
	if !ok {
		return nil
	}
	t.IsCompleted = !t.IsCompleted

	updated, err := h.Tasks.Update(ctx, t)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		h.Log.Error("toggle task failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if updated.IsCompleted {
		h.publishEvent(queue.TaskCompleted, updated)
	} else {
		h.publishEvent(queue.TaskReopened, updated)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, ok := h.loadOwnedTask(c, ctx, uid)
	if !ok {
		return nil
	}
	if err := h.Tasks.Delete(ctx, t.ID, uid); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		h.Log.Error("delete task failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.publishEvent(queue.TaskDeleted, t)
	return c.NoContent(http.StatusNoContent)
}

// loadOwnedTask parses the :id param, looks the task up by id alone and
// applies the disclosure policy: absent tasks are 404, tasks owned by
// someone else are 403.  The requester is already authenticated, so
// admitting that a foreign task exists reveals nothing enumerable.  On
// failure the response has been written and ok is false.
func (h *TaskHandler) loadOwnedTask(c echo.Context, ctx context.Context, uid uint64) (repository.Task, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		return repository.Task{}, false
	}
	t, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		} else {
			h.Log.Error("load task failed", zap.Error(err))
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		return repository.Task{}, false
	}
	if t.UserID != uid {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to access this task"})
		return repository.Task{}, false
	}
	return t, true
}

// publishEvent reports task activity to the broker without ever failing the
// request; a broker outage is not the client's problem.  Events fire only
// after the mutation has been committed.
func (h *TaskHandler) publishEvent(action string, t repository.Task) {
	if h.Publish == nil {
		return
	}
	ev := queue.TaskEvent{
		TaskID:     t.ID,
		UserID:     t.UserID,
		Action:     action,
		Title:      t.Title,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		_ = h.Publish(ctx, ev) // the publisher logs its own failures
	}()
}
