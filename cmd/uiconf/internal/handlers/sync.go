package handlers

import (
	"context"
	"fmt"
	"net/http"

	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratiosync"
)

// maxUpstreams bounds one sync request.
const maxUpstreams = 32

// UpstreamFetcher fetches ratio_config payloads from upstreams.
type UpstreamFetcher interface {
	FetchAll(ctx context.Context, upstreams []ratiosync.Upstream) []ratiosync.Result
}

// SyncHandler compares local ratios against upstream instances.
type SyncHandler struct {
	ratios  RatioStore
	fetcher UpstreamFetcher
	errors  *apierrors.ErrorHandler
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(ratios RatioStore, fetcher UpstreamFetcher, errorHandler *apierrors.ErrorHandler) *SyncHandler {
	return &SyncHandler{ratios: ratios, fetcher: fetcher, errors: errorHandler}
}

// FetchRequest is the body of POST /api/ratio_sync/fetch.
type FetchRequest struct {
	Upstreams []ratiosync.Upstream `json:"upstreams"`
}

// FetchResponse lists disagreeing values and per-upstream outcomes.
type FetchResponse struct {
	Differences map[string]map[string]ratiosync.Difference `json:"differences"`
	TestResults []ratiosync.TestResult                     `json:"test_results"`
}

// Fetch handles POST /api/ratio_sync/fetch. Unreachable upstreams are
// reported in test_results; the request still succeeds.
func (h *SyncHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		h.errors.WriteError(w, r, apiErr)
		return
	}
	if apiErr := validateUpstreams(req.Upstreams); apiErr != nil {
		h.errors.WriteError(w, r, apiErr)
		return
	}

	local, err := h.ratios.Exposed(r.Context())
	if err != nil {
		h.errors.WriteError(w, r, apierrors.MapDatabaseError(err))
		return
	}

	results := h.fetcher.FetchAll(r.Context(), req.Upstreams)

	resp := FetchResponse{
		Differences: ratiosync.Differences(local, results),
		TestResults: make([]ratiosync.TestResult, len(results)),
	}
	for i, res := range results {
		resp.TestResults[i] = res.TestResult()
	}

	writeSuccess(w, http.StatusOK, resp)
}

// validateUpstreams checks every upstream in place and rejects empty,
// oversized or duplicate-name lists.
func validateUpstreams(upstreams []ratiosync.Upstream) *apierrors.APIError {
	invalid := func(msg string) *apierrors.APIError {
		return apierrors.NewAPIError(http.StatusBadRequest, apierrors.CodeInvalidUpstream, msg)
	}

	if len(upstreams) == 0 {
		return invalid("At least one upstream is required")
	}
	if len(upstreams) > maxUpstreams {
		return invalid(fmt.Sprintf("At most %d upstreams are allowed", maxUpstreams))
	}

	seen := make(map[string]bool, len(upstreams))
	for i := range upstreams {
		if err := upstreams[i].Validate(); err != nil {
			return invalid(err.Error())
		}
		if seen[upstreams[i].Name] {
			return invalid(fmt.Sprintf("Duplicate upstream name: %s", upstreams[i].Name))
		}
		seen[upstreams[i].Name] = true
	}
	return nil
}
