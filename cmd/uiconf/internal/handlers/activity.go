package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/thalib/uiconf/cmd/uiconf/internal/activity"
	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
	"github.com/thalib/uiconf/cmd/uiconf/internal/middleware"
	"github.com/thalib/uiconf/cmd/uiconf/internal/pagination"
)

// ActivityRecorder stores activity log entries.
type ActivityRecorder interface {
	Record(ctx context.Context, l activity.Log) (activity.Log, error)
}

// ActivityStore is the activity log persistence used by the handlers.
type ActivityStore interface {
	ActivityRecorder
	List(ctx context.Context, f activity.Filter, offset, limit int) ([]activity.Log, error)
	Count(ctx context.Context, f activity.Filter) (int, error)
}

// ActivityHandler pages through the activity log. Users see their own
// entries; admins see every entry and may filter by user.
type ActivityHandler struct {
	store       ActivityStore
	maxPageSize int
	errors      *apierrors.ErrorHandler
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(store ActivityStore, maxPageSize int, errorHandler *apierrors.ErrorHandler) *ActivityHandler {
	return &ActivityHandler{store: store, maxPageSize: maxPageSize, errors: errorHandler}
}

// List handles GET /api/log.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserClaims(r.Context())

	page, err := pagination.FromRequest(r, h.maxPageSize)
	if err != nil {
		h.errors.WriteError(w, r, invalidPage(err))
		return
	}

	filter, apiErr := parseActivityFilter(r)
	if apiErr != nil {
		h.errors.WriteError(w, r, apiErr)
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

func parseActivityFilter(r *http.Request) (activity.Filter, *apierrors.APIError) {
	q := r.URL.Query()
	filter := activity.Filter{
		UserID: q.Get(constants.QueryParamUserID),
		Model:  q.Get(constants.QueryParamModelName),
	}

	if raw := q.Get(constants.QueryParamLogType); raw != "" {
		t, err := strconv.Atoi(raw)
		if err != nil || (t != activity.TypeUnknown && !activity.IsType(t)) {
			return activity.Filter{}, apierrors.NewValidationError("Invalid log type", map[string]any{
				constants.QueryParamLogType: raw,
			})
		}
		filter.Type = t
	}

	var err *apierrors.APIError
	if filter.Start, err = parseTimestamp(q.Get(constants.QueryParamStartTimestamp), constants.QueryParamStartTimestamp); err != nil {
		return activity.Filter{}, err
	}
	if filter.End, err = parseTimestamp(q.Get(constants.QueryParamEndTimestamp), constants.QueryParamEndTimestamp); err != nil {
		return activity.Filter{}, err
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		return activity.Filter{}, apierrors.NewValidationError("end_timestamp is before start_timestamp", nil)
	}
	return filter, nil
}

// parseTimestamp reads unix seconds. Empty and zero both mean unbounded.
func parseTimestamp(raw, name string) (time.Time, *apierrors.APIError) {
	if raw == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec < 0 {
		return time.Time{}, apierrors.NewValidationError("Invalid timestamp", map[string]any{name: raw})
	}
	if sec == 0 {
		return time.Time{}, nil
	}
	return time.Unix(sec, 0).UTC(), nil
}

// recordActivity stores l when rec is set. A failed write is logged and
// never fails the request that triggered it.
func recordActivity(ctx context.Context, rec ActivityRecorder, l activity.Log) {
	if rec == nil {
		return
	}
	if _, err := rec.Record(ctx, l); err != nil {
		logging.Warnf("failed to record activity for user %s: %v", l.UserID, err)
	}
}
