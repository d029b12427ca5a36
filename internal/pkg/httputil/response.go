package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
	"github.com/cozy-blogs/carajillo/internal/pkg/logger"
)

// ErrorResponse is the error envelope for all API errors. Code carries
// the machine reason clients branch on; Error carries the human message.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Fail renders a classified error toward the client: status + reason +
// message only. The internal detail is logged here and goes no further.
func Fail(w http.ResponseWriter, err error) {
	e := apierr.From(err)
	if e.Status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", e.Status, "reason", e.Reason, "detail", e.Detail)
	} else {
		logger.Warn("request rejected", "status", e.Status, "reason", e.Reason, "detail", e.Detail)
	}
	JSON(w, e.Status, ErrorResponse{Error: e.Message, Code: e.Reason})
}

// BadRequest writes a 400 with the invalid-request reason.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: apierr.ReasonInvalidRequest})
}

// Decode reads the JSON request body into dst, responding with a 400
// and returning false when the body does not parse.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
