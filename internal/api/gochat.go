package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatapp/internal/config"
	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/images"
	"github.com/npezzotti/go-chatapp/internal/server"
	"github.com/npezzotti/go-chatapp/internal/types"
)

// ChatHub is the part of the chat server the HTTP layer talks to.
type ChatHub interface {
	Connect(user types.User, conn *websocket.Conn) *server.Client
	Route(msg types.Message)
	OnlineUserIds() []int
}

type GoChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	mux            *http.Server
	cs             ChatHub
	unseen         *server.UnseenCounter
	images         images.ImageStore
	signingKey     []byte
	allowedOrigins []string
	maxBodyBytes   int64
}

func NewGoChatApp(mux *http.ServeMux, logger *log.Logger, cs ChatHub, db database.ChatRepository, store images.ImageStore, cfg *config.Config) *GoChatApp {
	s := &GoChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		unseen:         server.NewUnseenCounter(db),
		images:         store,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		maxBodyBytes:   cfg.MaxBodyBytes,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /api/status", s.status)

	mux.HandleFunc("POST /api/auth/signup", s.signup)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/check", s.authMiddleware(s.checkAuth))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("PUT /api/auth/update-profile", s.authMiddleware(s.updateProfile))

	mux.HandleFunc("GET /api/messages/sidebar", s.authMiddleware(s.sidebar))
	mux.HandleFunc("GET /api/messages/{id}", s.authMiddleware(s.getMessages))
	mux.HandleFunc("PUT /api/messages/mark-seen/{id}", s.authMiddleware(s.markSeen))
	mux.HandleFunc("POST /api/messages/send/{id}", s.authMiddleware(s.sendMessage))

	mux.HandleFunc("GET /api/users/online", s.authMiddleware(s.onlineUsers))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization", tokenHeaderKey}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.limitBody(h)
	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *GoChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *GoChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
