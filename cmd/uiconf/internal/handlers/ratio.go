package handlers

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/pagination"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratio"
)

// RatioStore is the ratio persistence used by the handlers.
type RatioStore interface {
	Upsert(ctx context.Context, e ratio.Entry) (ratio.Entry, error)
	Delete(ctx context.Context, model string) error
	List(ctx context.Context, offset, limit int) ([]ratio.Entry, error)
	Count(ctx context.Context) (int, error)
	Exposed(ctx context.Context) (ratio.Config, error)
}

// RatioHandler serves the ratio_config endpoint and model ratio CRUD.
type RatioHandler struct {
	store       RatioStore
	expose      bool
	maxPageSize int
	errors      *apierrors.ErrorHandler
}

// NewRatioHandler creates a ratio handler. When expose is false the
// ratio_config endpoint answers 403.
func NewRatioHandler(store RatioStore, expose bool, maxPageSize int, errorHandler *apierrors.ErrorHandler) *RatioHandler {
	return &RatioHandler{
		store:       store,
		expose:      expose,
		maxPageSize: maxPageSize,
		errors:      errorHandler,
	}
}

// UpsertRequest is the body of POST /api/ratio_config/models.
type UpsertRequest struct {
	ModelName       string   `json:"model_name"`
	ModelRatio      float64  `json:"model_ratio"`
	CompletionRatio float64  `json:"completion_ratio"`
	CacheRatio      *float64 `json:"cache_ratio,omitempty"`
	ModelPrice      *float64 `json:"model_price,omitempty"`
}

// Exposed handles GET on the configured ratio endpoint.
func (h *RatioHandler) Exposed(w http.ResponseWriter, r *http.Request) {
	if !h.expose {
		h.errors.WriteError(w, r, apierrors.NewAPIError(http.StatusForbidden, apierrors.CodeRatioExposureDisabled,
			"Ratio exposure is disabled"))
		return
	}

	cfg, err := h.store.Exposed(r.Context())
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}
	writeSuccess(w, http.StatusOK, cfg)
}

// List handles GET /api/ratio_config/models.
func (h *RatioHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromRequest(r, h.maxPageSize)
	if err != nil {
		h.errors.WriteError(w, r, invalidPage(err))
		return
	}

	total, err := h.store.Count(r.Context())
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}
	entries, err := h.store.List(r.Context(), page.Offset(), page.PageSize)
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}

	writeSuccess(w, http.StatusOK, pagination.NewPageInfo(page, total, entries))
}

// Upsert handles POST /api/ratio_config/models.
func (h *RatioHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		h.errors.WriteError(w, r, apiErr)
		return
	}

	entry, err := h.store.Upsert(r.Context(), ratio.Entry{
		ModelName:       req.ModelName,
		ModelRatio:      req.ModelRatio,
		CompletionRatio: req.CompletionRatio,
		CacheRatio:      req.CacheRatio,
		ModelPrice:      req.ModelPrice,
	})
	if errors.Is(err, ratio.ErrInvalidEntry) {
		h.errors.WriteError(w, r, apierrors.NewValidationError(err.Error(), nil))
		return
	}
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}

	writeSuccess(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/ratio_config/models/{model}.
func (h *RatioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")

	err := h.store.Delete(r.Context(), model)
	if errors.Is(err, ratio.ErrNotFound) {
		h.errors.WriteError(w, r, apierrors.NewNotFoundError("Model ratio"))
		return
	}
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"model_name": model})
}
