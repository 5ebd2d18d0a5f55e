package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-psych/internal/auth/middleware"
	"github.com/mind-engage/mindengage-psych/internal/psytest"
	"github.com/mind-engage/mindengage-psych/internal/rbac"
	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

type submitBody struct {
	TestID           string `json:"test_id"`
	UserID           string `json:"user_id,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
	Answers          any    `json:"answers"`
	TimeSpentSeconds int    `json:"time_spent_seconds,omitempty"`
}

// SubmitResponse is the one-shot submission result.
type SubmitResponse struct {
	AttemptID        string                            `json:"attempt_id"`
	Score            float64                           `json:"score"`
	MaxPossibleScore float64                           `json:"max_possible_score"`
	Percentage       float64                           `json:"percentage"`
	Passed           bool                              `json:"passed"`
	FactorScores     map[string]int                    `json:"factor_scores"`
	Interpretation   map[string]scoring.Interpretation `json:"interpretation"`
}

func submitResponse(a psytest.Attempt) SubmitResponse {
	out := SubmitResponse{
		AttemptID:        a.ID,
		Score:            a.Score,
		MaxPossibleScore: a.MaxPossibleScore,
		Percentage:       a.Percentage,
		Passed:           a.Passed,
		FactorScores:     a.FactorScores,
		Interpretation:   a.Interpretation,
	}
	if out.FactorScores == nil {
		out.FactorScores = map[string]int{}
	}
	if out.Interpretation == nil {
		out.Interpretation = map[string]scoring.Interpretation{}
	}
	return out
}

// owner resolves whose attempt this request acts for. Callers allowed to
// see every attempt may name a user or session explicitly.
func owner(r *http.Request, userID, sessionID string) (string, string) {
	if rbac.Can(r.Context(), rbac.PermViewAll) && (userID != "" || sessionID != "") {
		return strings.TrimSpace(userID), strings.TrimSpace(sessionID)
	}
	return auth.Identity(r.Context())
}

// ownsAttempt reports whether the caller may touch a.
func ownsAttempt(r *http.Request, a psytest.Attempt) bool {
	if rbac.Can(r.Context(), rbac.PermViewAll) {
		return true
	}
	uid, sid := auth.Identity(r.Context())
	return (uid != "" && a.UserID == uid) || (sid != "" && a.SessionID == sid)
}

// POST /attempts/submit
func SubmitHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body submitBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badJSON(w, err)
			return
		}
		answers, ok := body.Answers.(map[string]any)
		if body.Answers != nil && !ok {
			writeError(w, r, log, &psytest.ValidationError{
				Msg:    "invalid submission",
				Fields: map[string]string{"answers": "must be an object"},
			})
			return
		}
		uid, sid := owner(r, body.UserID, body.SessionID)
		a, err := svc.SubmitAttempt(r.Context(), psytest.SubmitRequest{
			TestID:           body.TestID,
			UserID:           uid,
			SessionID:        sid,
			Answers:          answers,
			TimeSpentSeconds: body.TimeSpentSeconds,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, submitResponse(a))
	}
}

// POST /attempts  { "test_id": "..." }
func StartAttemptHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TestID    string `json:"test_id"`
			UserID    string `json:"user_id"`
			SessionID string `json:"session_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badJSON(w, err)
			return
		}
		uid, sid := owner(r, body.UserID, body.SessionID)
		a, err := svc.StartAttempt(r.Context(), body.TestID, uid, sid)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// loadOwned fetches the attempt in the URL and hides it from non-owners.
func loadOwned(svc *psytest.Service, w http.ResponseWriter, r *http.Request, log *slog.Logger) (psytest.Attempt, bool) {
	id := chi.URLParam(r, "attemptID")
	a, err := svc.GetAttempt(r.Context(), id)
	if err == nil && !ownsAttempt(r, a) {
		err = psytest.ErrAttemptNotFound
	}
	if err != nil {
		writeError(w, r, log, err)
		return psytest.Attempt{}, false
	}
	return a, true
}

// POST /attempts/{attemptID}/answers  { "<questionID>": <answer>, ... }
func SaveAnswersHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var answers map[string]any
		if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
			badJSON(w, err)
			return
		}
		a, ok := loadOwned(svc, w, r, log)
		if !ok {
			return
		}
		a, err := svc.SaveAnswers(r.Context(), a.ID, answers)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/complete  { "time_spent_seconds": 0 }
func CompleteAttemptHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TimeSpentSeconds int `json:"time_spent_seconds"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				badJSON(w, err)
				return
			}
		}
		a, ok := loadOwned(svc, w, r, log)
		if !ok {
			return
		}
		a, err := svc.CompleteAttempt(r.Context(), a.ID, body.TimeSpentSeconds)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, submitResponse(a))
	}
}

// POST /attempts/{attemptID}/abandon
func AbandonAttemptHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(svc, w, r, log)
		if !ok {
			return
		}
		a, err := svc.AbandonAttempt(r.Context(), a.ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(svc, w, r, log)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}/answers
func AnswerDetailsHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwned(svc, w, r, log)
		if !ok {
			return
		}
		details, err := svc.GetAnswerDetails(r.Context(), a.ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

// GET /attempts?test_id=...&user_id=...&session_id=...&status=...&limit=50&offset=0
// Without attempt:view-all the user/session filter is forced to the caller.
func ListAttemptsHandler(svc *psytest.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := psytest.AttemptListOpts{
			TestID:    strings.TrimSpace(q.Get("test_id")),
			UserID:    strings.TrimSpace(q.Get("user_id")),
			SessionID: strings.TrimSpace(q.Get("session_id")),
			Status:    psytest.Status(strings.TrimSpace(q.Get("status"))),
			Limit:     parseIntDefault(q.Get("limit"), 50),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		}
		if !rbac.Can(r.Context(), rbac.PermViewAll) {
			opts.UserID, opts.SessionID = auth.Identity(r.Context())
			if opts.UserID == "" && opts.SessionID == "" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		list, err := svc.ListAttempts(r.Context(), opts)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
