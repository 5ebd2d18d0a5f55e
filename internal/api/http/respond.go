package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-psych/internal/psytest"
)

type errorBody struct {
	Error   psytest.Kind      `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code. Internal failures are logged in
// full and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := psytest.KindOf(err)
	body := errorBody{Error: kind, Message: err.Error()}
	status := http.StatusInternalServerError
	switch kind {
	case psytest.KindInvalidInput:
		status = http.StatusBadRequest
		var ve *psytest.ValidationError
		if errors.As(err, &ve) {
			body.Message = ve.Msg
			body.Details = ve.Fields
		}
	case psytest.KindNotFound:
		status = http.StatusNotFound
	case psytest.KindConflict:
		status = http.StatusConflict
	default:
		body.Message = "internal error"
		log.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	writeJSON(w, status, body)
}

func badJSON(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: psytest.KindInvalidInput, Message: "bad json: " + err.Error()})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
