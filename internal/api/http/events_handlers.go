package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-psych/internal/outbox"
	"github.com/mind-engage/mindengage-psych/internal/psytest"
)

type EventLister interface {
	List(ctx context.Context, after int64, limit int) ([]outbox.Event, error)
}

// GET /events?after=<seq>&limit=100
func ListEventsHandler(events EventLister, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if s := r.URL.Query().Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: psytest.KindInvalidInput, Message: "after must be a non-negative integer"})
				return
			}
			after = v
		}
		list, err := events.List(r.Context(), after, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
