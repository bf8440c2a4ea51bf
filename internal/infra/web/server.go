package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-bot-platform/internal/usecase"
)

type Server struct {
	directoryUC usecase.DirectoryUseCase
	statsUC     usecase.StatsUseCase
	broadcastUC usecase.BroadcastUseCase
	accountUC   usecase.AccountUseCase
	auth        *AuthManager
	port        int
	log         *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(
	directoryUC usecase.DirectoryUseCase,
	statsUC usecase.StatsUseCase,
	broadcastUC usecase.BroadcastUseCase,
	accountUC usecase.AccountUseCase,
	auth *AuthManager,
	port int,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		directoryUC: directoryUC,
		statsUC:     statsUC,
		broadcastUC: broadcastUC,
		accountUC:   accountUC,
		auth:        auth,
		port:        port,
		log:         &compLog,
	}
}

// Router builds the full route tree. Split out from Start so tests can drive
// it with httptest.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Anonymous routes
		r.Post("/register", registerHandler(s.accountUC, s.auth))
		r.Post("/login", loginHandler(s.accountUC, s.auth))
		r.Post("/token/refresh", refreshHandler(s.auth))
		r.Get("/public", publicHandler(s.directoryUC, s.accountUC))

		// Everything else needs a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth)

			r.Get("/protected", protectedHandler(s.accountUC))
			r.Post("/link-telegram", linkTelegramHandler(s.accountUC))

			r.Get("/telegram-users", telegramUsersListHandler(s.directoryUC))
			r.Get("/telegram-users/{chatID}", telegramUserGetHandler(s.directoryUC, s.statsUC))

			r.Get("/broadcasts", broadcastsListHandler(s.broadcastUC))
			r.Post("/broadcasts", broadcastsCreateHandler(s.broadcastUC, s.accountUC))
			r.Get("/broadcasts/{id}", broadcastGetHandler(s.broadcastUC))
			r.Post("/broadcasts/{id}/send", broadcastSendHandler(s.broadcastUC))

			r.Get("/stats", statsHandler(s.statsUC))
		})
	})
	return r
}

// Start blocks until the context is cancelled, then shuts the listener down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.port).Msg("Starting web server")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("Stopping web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
