package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	api "github.com/voxquiz/voxquiz/internal/api/http"
	"github.com/voxquiz/voxquiz/internal/audit"
	auth "github.com/voxquiz/voxquiz/internal/auth/middleware"
	"github.com/voxquiz/voxquiz/internal/backend"
	"github.com/voxquiz/voxquiz/internal/config"
	"github.com/voxquiz/voxquiz/internal/db"
	"github.com/voxquiz/voxquiz/internal/engine"
	"github.com/voxquiz/voxquiz/internal/kv"
	"github.com/voxquiz/voxquiz/internal/quiz"
	"github.com/voxquiz/voxquiz/internal/rbac"
	"github.com/voxquiz/voxquiz/internal/retry"
	"github.com/voxquiz/voxquiz/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	lms := backend.New(cfg.BackendBaseURL,
		backend.WithRetryPolicy(retry.Policy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}),
		backend.WithBearerToken(cfg.BackendToken),
	)
	orders := quiz.NewOrderCache(kv.NewSQLStore(dbh), nil)
	normalizer := quiz.NewNormalizer(nil)
	auditRepo := audit.NewEventRepo(dbh)

	runs := api.NewRuns(func(ctx context.Context, userID, subtopicID string) (*engine.Run, error) {
		return engine.Load(ctx, engine.Config{
			UserID:     userID,
			SubtopicID: subtopicID,
			API:        lms,
			Blobs:      bs,
			Orders:     orders,
			Normalizer: normalizer,
			Audit:      auditRepo,
		})
	})

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	authSvc.AdminUser = cfg.AdminUser
	authSvc.AdminPassHash = cfg.AdminPassHash

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("quiz:view")).
			Get("/quiz/{subtopicID}", api.GetQuizHandler(runs))
		pr.With(rbac.Require("quiz:start")).
			Post("/quiz/{subtopicID}/start", api.StartQuizHandler(runs))
		pr.With(rbac.Require("quiz:answer")).
			Post("/quiz/{subtopicID}/answer", api.AnswerHandler(runs))
		pr.With(rbac.Require("quiz:integrity")).
			Post("/quiz/{subtopicID}/integrity", api.IntegrityHandler(runs))
		pr.With(rbac.Require("quiz:submit")).
			Post("/quiz/{subtopicID}/submit", api.SubmitQuizHandler(runs))
		pr.With(rbac.Require("quiz:view")).
			Post("/quiz/{subtopicID}/close", api.CloseQuizHandler(runs))

		pr.With(rbac.Require("audit:view")).
			Get("/audit", api.ListAuditHandler(auditRepo))
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("voxquizd listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
