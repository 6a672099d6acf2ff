package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/hotel-backoffice/hotel"
)

// statusOf maps an engine error kind to an HTTP status. Fatal errors are 500.
func statusOf(err error) int {
	switch hotel.KindOf(err) {
	case hotel.ErrValidation:
		return http.StatusBadRequest
	case hotel.ErrAccessDenied:
		return http.StatusForbidden
	case hotel.ErrNotFound:
		return http.StatusNotFound
	case hotel.ErrStateConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON. Typed errors carry their code, message and field;
// anything else is logged with the request id and hidden behind a generic
// message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, status, ErrorResponse{Error: "internal server error", Code: "internal"})
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var he *hotel.Error
	if errors.As(err, &he) {
		resp.Error = he.Message
		resp.Code = he.Code
		resp.Field = he.Field
	}
	writeJSON(w, status, resp)
}
