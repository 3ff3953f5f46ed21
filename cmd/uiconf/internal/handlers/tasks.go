package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/thalib/uiconf/cmd/uiconf/internal/activity"
	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/middleware"
	"github.com/thalib/uiconf/cmd/uiconf/internal/pagination"
	"github.com/thalib/uiconf/cmd/uiconf/internal/tasks"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ulid"
)

// TaskStore is the task persistence used by the handlers.
type TaskStore interface {
	Create(ctx context.Context, t tasks.Task) (tasks.Task, error)
	Get(ctx context.Context, id string) (tasks.Task, error)
	UpdateStatus(ctx context.Context, id, status string) (tasks.Task, error)
	List(ctx context.Context, f tasks.Filter, offset, limit int) ([]tasks.Task, error)
	Count(ctx context.Context, f tasks.Filter) (int, error)
}

// TaskHandler serves task records. Users see their own tasks; admins
// see every task. Submissions and status changes are written to the
// activity log when a recorder is set.
type TaskHandler struct {
	store       TaskStore
	activity    ActivityRecorder
	maxPageSize int
	errors      *apierrors.ErrorHandler
}

// NewTaskHandler creates a new task handler. recorder may be nil.
func NewTaskHandler(store TaskStore, recorder ActivityRecorder, maxPageSize int, errorHandler *apierrors.ErrorHandler) *TaskHandler {
	return &TaskHandler{store: store, activity: recorder, maxPageSize: maxPageSize, errors: errorHandler}
}

// CreateTaskRequest is the body of POST /api/task.
type CreateTaskRequest struct {
	Action string `json:"action"`
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// UpdateStatusRequest is the body of POST /api/task/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func invalidAction(action string) *apierrors.APIError {
	return apierrors.NewAPIError(http.StatusBadRequest, apierrors.CodeInvalidTaskAction, "Invalid task action").
		WithDetails(map[string]any{
			"action":  action,
			"allowed": constants.TaskActions(),
		})
}

// Create handles POST /api/task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserClaims(r.Context())

	var req CreateTaskRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		h.errors.WriteError(w, r, apiErr)
		return
	}

	task, err := h.store.Create(r.Context(), tasks.Task{
		Action: req.Action,
		Model:  req.Model,
		Prompt: req.Prompt,
		UserID: claims.UserID,
	})
	switch {
	case errors.Is(err, tasks.ErrInvalidAction):
		h.errors.WriteError(w, r, invalidAction(req.Action))
	case errors.Is(err, tasks.ErrInvalidTask):
		h.errors.WriteError(w, r, apierrors.NewValidationError(err.Error(), nil))
	case err != nil:
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
	default:
		recordActivity(r.Context(), h.activity, activity.Log{
			Type:    activity.TypeConsume,
			UserID:  task.UserID,
			Model:   task.Model,
			Content: fmt.Sprintf("submitted %s task %s", task.Action, task.ID),
		})
		writeSuccess(w, http.StatusCreated, task)
	}
}

// List handles GET /api/task with optional action filter.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserClaims(r.Context())

	page, err := pagination.FromRequest(r, h.maxPageSize)
	if err != nil {
		h.errors.WriteError(w, r, invalidPage(err))
		return
	}

	filter := tasks.Filter{Action: r.URL.Query().Get(constants.QueryParamAction)}
	if filter.Action != "" && !constants.IsTaskAction(filter.Action) {
		h.errors.WriteError(w, r, invalidAction(filter.Action))
		return
	}
	if !claims.HasRole(constants.RoleAdmin) {
		filter.UserID = claims.UserID
	}

	total, err := h.store.Count(r.Context(), filter)
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}
	items, err := h.store.List(r.Context(), filter, page.Offset(), page.PageSize)
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}

	writeSuccess(w, http.StatusOK, pagination.NewPageInfo(page, total, items))
}

// Get handles GET /api/task/{id}. Another user's task is reported as
// not found.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.load(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, task)
}

// UpdateStatus handles POST /api/task/{id}/status (admin only).
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	prev, ok := h.load(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		h.errors.WriteError(w, r, apiErr)
		return
	}

	task, err := h.store.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	switch {
	case errors.Is(err, tasks.ErrInvalidStatus):
		h.errors.WriteError(w, r, apierrors.NewValidationError("Invalid task status", map[string]any{
			"status": req.Status,
		}))
	case errors.Is(err, tasks.ErrNotFound):
		h.errors.WriteError(w, r, apierrors.NewNotFoundError("Task"))
	case err != nil:
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
	default:
		recordActivity(r.Context(), h.activity, activity.Log{
			Type:    activity.TypeSystem,
			UserID:  task.UserID,
			Model:   task.Model,
			Content: fmt.Sprintf("task %s status %s -> %s", task.ID, prev.Status, task.Status),
		})
		writeSuccess(w, http.StatusOK, task)
	}
}

// load fetches the task named by the {id} path value, writing the error
// response itself when it returns false.
func (h *TaskHandler) load(w http.ResponseWriter, r *http.Request) (tasks.Task, bool) {
	claims, _ := middleware.GetUserClaims(r.Context())

	id := r.PathValue("id")
	if err := ulid.Validate(id); err != nil {
		h.errors.WriteError(w, r, apierrors.NewAPIError(http.StatusBadRequest, apierrors.CodeInvalidULID, err.Error()))
		return tasks.Task{}, false
	}

	task, err := h.store.Get(r.Context(), id)
	if errors.Is(err, tasks.ErrNotFound) ||
		(err == nil && task.UserID != claims.UserID && !claims.HasRole(constants.RoleAdmin)) {
		h.errors.WriteError(w, r, apierrors.NewNotFoundError("Task"))
		return tasks.Task{}, false
	}
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return tasks.Task{}, false
	}
	return task, true
}
