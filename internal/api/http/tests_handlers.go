package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-psych/internal/psytest"
	"github.com/mind-engage/mindengage-psych/internal/rbac"
)

// POST /tests  (body: TestDefinition)
func UploadTestHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var d psytest.TestDefinition
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			badJSON(w, err)
			return
		}
		saved, err := svc.PutTest(r.Context(), d)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		log.Info("test stored", "test_id", saved.ID, "questions", len(saved.Questions))
		writeJSON(w, http.StatusCreated, saved)
	}
}

// GET /tests/{testID}
// Callers who may author tests get the full definition; everyone else the
// taker view without answer keys.
func GetTestHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if !rbac.Can(r.Context(), rbac.PermTestCreate) {
			d = d.TakerView()
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// GET /tests?q=&limit=&offset=
func ListTestsHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListTests(r.Context(), psytest.ListOpts{
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /tests/{testID}/stats
func GetTestStatsHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.GetTestStats(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
