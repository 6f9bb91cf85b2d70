package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/quizhub/apiserver/config"
	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/db"
	"github.com/quizhub/apiserver/internal/events"
	"github.com/quizhub/apiserver/internal/handlers"
	"github.com/quizhub/apiserver/internal/mail"
	"github.com/quizhub/apiserver/internal/metrics"
	"github.com/quizhub/apiserver/internal/services"
	"github.com/quizhub/apiserver/internal/storage"
	"github.com/quizhub/apiserver/internal/store"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server, its router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *events.Bus
	log        *logrus.Entry
}

// New opens every dependency named by cfg and mounts the API routes.
func New(ctx context.Context, cfg config.Config, log *logrus.Entry) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sender, err := mail.NewSMTPSender(cfg.SMTP)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("configure mail: %w", err)
	}

	var covers services.CoverStorage
	objectStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if objectStore != nil {
		covers = objectStore
		log.WithField("bucket", objectStore.Bucket()).Info("quiz covers enabled")
	}

	backend, err := events.Open(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open events: %w", err)
	}
	bus := events.New(backend, log.WithField("component", "events"))

	m := metrics.New()
	m.RegisterDB(dbConn)

	quizRepo := store.NewQuizRepository(dbConn)
	announcementRepo := store.NewAnnouncementRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)

	mailService := services.NewMailService(userRepo, sender, cfg.BaseURL, bus, m, log)
	userService := services.NewUserService(userRepo, mailService, bus, log)
	quizService := services.NewQuizService(quizRepo, covers, bus, log)
	announcementService := services.NewAnnouncementService(announcementRepo, bus, log)

	tokens := auth.NewTokens(cfg.JWTSecret, auth.DefaultTokenTTL)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		m.Middleware,
		handlers.RequestLogger(log.WithField("component", "http")),
		middleware.Timeout(requestTimeout),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", m.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, mailService, tokens)
	})
	router.Route("/user", func(r chi.Router) {
		handlers.UserRouter(r, userService, tokens)
	})
	router.Route("/updatePassword", func(r chi.Router) {
		handlers.PasswordRouter(r, userService, tokens)
	})
	router.Route("/quizzes", func(r chi.Router) {
		handlers.QuizRouter(r, quizService, userService, tokens)
	})
	router.Route("/announcements", func(r chi.Router) {
		handlers.AnnouncementRouter(r, announcementService, tokens)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the event backend and the
// database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.bus.Close(); closeErr != nil {
		s.log.WithError(closeErr).Warn("failed to close event backend")
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			s.log.WithError(closeErr).Warn("failed to close database")
		}
	}
	return err
}
