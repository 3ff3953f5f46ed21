package handlers

import (
	"net/http"
	"strings"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
)

// FrontendConstants is the constant table published to the web console.
type FrontendConstants struct {
	ItemsPerPage           int      `json:"items_per_page"`
	DefaultEndpoint        string   `json:"default_endpoint"`
	RatioEndpoint          string   `json:"ratio_endpoint"`
	TableCompactModesKey   string   `json:"table_compact_modes_key"`
	APIEndpoints           []string `json:"api_endpoints"`
	TaskActionGenerate     string   `json:"task_action_generate"`
	TaskActionTextGenerate string   `json:"task_action_text_generate"`
}

// NewFrontendConstants builds the table. ratioEndpoint is the configured
// ratio route, which may differ from the default.
func NewFrontendConstants(ratioEndpoint string) FrontendConstants {
	return FrontendConstants{
		ItemsPerPage:           constants.ItemsPerPage,
		DefaultEndpoint:        constants.DefaultEndpoint,
		RatioEndpoint:          ratioEndpoint,
		TableCompactModesKey:   constants.TableCompactModesKey,
		APIEndpoints:           constants.APIEndpoints(),
		TaskActionGenerate:     constants.TaskActionGenerate,
		TaskActionTextGenerate: constants.TaskActionTextGenerate,
	}
}

// FrontendHandler serves the constant table and the console's 404s.
type FrontendHandler struct {
	prefix        string
	ratioEndpoint string
	errors        *apierrors.ErrorHandler
}

// NewFrontendHandler creates a new frontend handler. prefix is the
// configured server.prefix and is stripped before relay path matching.
func NewFrontendHandler(prefix, ratioEndpoint string, errorHandler *apierrors.ErrorHandler) *FrontendHandler {
	return &FrontendHandler{prefix: prefix, ratioEndpoint: ratioEndpoint, errors: errorHandler}
}

// Constants handles GET /api/frontend/constants.
func (h *FrontendHandler) Constants(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, NewFrontendConstants(h.ratioEndpoint))
}

// NotFound answers unrouted paths. Relay API paths get a hint that the
// console does not serve model traffic.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	err := apierrors.NewAPIError(http.StatusNotFound, apierrors.CodeUnknownEndpoint, "Endpoint not found")
	if constants.IsAPIEndpoint(strings.TrimPrefix(r.URL.Path, h.prefix)) {
		err = err.WithDetails(map[string]any{
			"path":           r.URL.Path,
			"relay_endpoint": true,
		})
	}
	h.errors.WriteError(w, r, err)
}
