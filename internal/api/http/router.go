package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-psych/internal/auth/middleware"
	"github.com/mind-engage/mindengage-psych/internal/psytest"
	"github.com/mind-engage/mindengage-psych/internal/rbac"
)

type RouterConfig struct {
	Service *psytest.Service
	Events  EventLister
	Auth    *auth.AuthService
	Log     *slog.Logger

	EnableLocalAuth bool
	EnableGuest     bool
	AdminUser       string
	AdminPassHash   string
	CORSOrigins     []string
	RequestTimeout  time.Duration

	// Ready backs /readyz, typically a database ping.
	Ready func(ctx context.Context) error
}

func NewRouter(c RouterConfig) http.Handler {
	log := c.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	svc := c.Service

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	if len(c.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   c.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if c.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(c.Auth, c.AdminUser, c.AdminPassHash))
	}
	if c.EnableGuest {
		r.Post("/auth/guest", auth.GuestHandler(c.Auth))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(c.Auth))

		pr.With(rbac.Require(rbac.PermTestCreate)).
			Post("/tests", UploadTestHandler(svc, log))
		pr.With(rbac.Require(rbac.PermTestList)).
			Get("/tests", ListTestsHandler(svc, log))
		pr.With(rbac.Require(rbac.PermTestView)).
			Get("/tests/{testID}", GetTestHandler(svc, log))
		pr.With(rbac.Require(rbac.PermStatsView)).
			Get("/tests/{testID}/stats", GetTestStatsHandler(svc, log))

		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/attempts/submit", SubmitHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptCreate)).
			Post("/attempts", StartAttemptHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptSave)).
			Post("/attempts/{attemptID}/answers", SaveAnswersHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/attempts/{attemptID}/complete", CompleteAttemptHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptSave)).
			Post("/attempts/{attemptID}/abandon", AbandonAttemptHandler(svc, log))

		pr.With(rbac.RequireAny(rbac.PermViewOwn, rbac.PermViewAll)).
			Get("/attempts", ListAttemptsHandler(svc, log))
		pr.With(rbac.RequireAny(rbac.PermViewOwn, rbac.PermViewAll)).
			Get("/attempts/{attemptID}", GetAttemptHandler(svc, log))
		pr.With(rbac.RequireAny(rbac.PermViewOwn, rbac.PermViewAll)).
			Get("/attempts/{attemptID}/answers", AnswerDetailsHandler(svc, log))

		if c.Events != nil {
			pr.With(rbac.Require(rbac.PermEventsRead)).
				Get("/events", ListEventsHandler(c.Events, log))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if c.Ready != nil {
			if err := c.Ready(r.Context()); err != nil {
				log.Warn("not ready", "err", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
