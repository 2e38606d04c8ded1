package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-chatbroker/internal/config"
	"github.com/npezzotti/go-chatbroker/internal/server"
)

// ChatBrokerApp is the HTTP surface of the broker: guest session
// issuance, the websocket endpoint and liveness. Everything stateful
// lives in the chat server; this layer only authenticates and
// upgrades.
type ChatBrokerApp struct {
	log            *log.Logger
	srv            *http.Server
	cs             *server.ChatServer
	signingKey     []byte
	allowedOrigins []string
	eventRateLimit int
}

func NewChatBrokerApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, cfg *config.Config) *ChatBrokerApp {
	s := &ChatBrokerApp{
		log:            logger,
		cs:             cs,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		eventRateLimit: cfg.EventRateLimit,
	}

	mux.HandleFunc("POST /api/session", s.createSession)
	mux.HandleFunc("GET /api/healthz", s.healthz)
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *ChatBrokerApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ChatBrokerApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
