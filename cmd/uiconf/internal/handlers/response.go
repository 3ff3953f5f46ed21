// Package handlers implements the console HTTP API: the frontend
// constant table, ratio configuration, upstream ratio sync and tasks.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

// Response is the success envelope shared with the web console.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set(constants.HeaderContentType, constants.MIMEApplicationJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Errorf("Error encoding JSON response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, Response{Success: true, Data: data})
}

// decodeJSON reads a single JSON object into v. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) *apierrors.APIError {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierrors.NewAPIError(http.StatusBadRequest, apierrors.CodeInvalidJSON, "Request body is required")
		}
		return apierrors.NewAPIError(http.StatusBadRequest, apierrors.CodeInvalidJSON,
			fmt.Sprintf("Invalid JSON: %v", err))
	}
	if dec.More() {
		return apierrors.NewAPIError(http.StatusBadRequest, apierrors.CodeInvalidJSON, "Request body must be a single JSON object")
	}
	return nil
}

func invalidPage(err error) *apierrors.APIError {
	return apierrors.NewAPIError(http.StatusBadRequest, apierrors.CodeInvalidPage, err.Error())
}
