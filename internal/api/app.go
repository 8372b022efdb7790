package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/crmsuite/relay/internal/config"
	"github.com/crmsuite/relay/internal/database"
	"github.com/crmsuite/relay/internal/relay"
	"github.com/gorilla/handlers"
)

// NotificationPusher is the producer side of the fan-out bridge: a
// best-effort, non-blocking push of one event into the relay.
type NotificationPusher interface {
	Push(event string, payload any)
}

type CrmApp struct {
	log            *log.Logger
	db             database.CrmRepository
	mux            *http.Server
	rs             *relay.RelayServer
	notifier       NotificationPusher
	signingKey     []byte
	allowedOrigins []string
}

func NewCrmApp(mux *http.ServeMux, logger *log.Logger, rs *relay.RelayServer,
	db database.CrmRepository, notifier NotificationPusher, cfg *config.Config) *CrmApp {
	s := &CrmApp{
		log:            logger,
		db:             db,
		rs:             rs,
		notifier:       notifier,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("POST /api/messages", s.authMiddleware(s.createMessage))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/notifications", s.authMiddleware(s.createNotification))
	mux.Handle("POST /api/conversations/ban", s.authMiddleware(s.banConversation))
	mux.Handle("GET /api/conversations/participants", s.authMiddleware(s.getParticipants))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *CrmApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CrmApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
