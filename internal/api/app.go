package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/chatfastnow/go-chatserver/internal/config"
	"github.com/chatfastnow/go-chatserver/internal/database"
	"github.com/chatfastnow/go-chatserver/internal/server"
	"github.com/chatfastnow/go-chatserver/internal/stats"
	"github.com/gorilla/handlers"
)

type ChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	mux            *http.Server
	cs             *server.ChatServer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	limiters       *limiterStore
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.ChatRepository, sp stats.StatsProvider, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		limiters:       newLimiterStore(authRateLimit, authRateBurst, limiterCleanupInterval),
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /api/users", s.listUsers)
	mux.HandleFunc("POST /api/register", s.rateLimit(s.register))
	mux.HandleFunc("POST /api/login", s.rateLimit(s.login))
	mux.Handle("GET /api/searchusers", s.authMiddleware(s.searchUsers))
	mux.Handle("POST /api/accesschat", s.authMiddleware(s.accessChat))
	mux.Handle("GET /api/fetchchats", s.authMiddleware(s.fetchChats))
	mux.Handle("POST /api/creategroup", s.authMiddleware(s.createGroup))
	mux.Handle("PUT /api/renamegroup", s.authMiddleware(s.renameGroup))
	mux.Handle("PUT /api/addtogroup", s.authMiddleware(s.addToGroup))
	mux.Handle("PUT /api/removefromgroup", s.authMiddleware(s.removeFromGroup))
	mux.Handle("POST /api/sendmessage", s.authMiddleware(s.sendMessage))
	mux.Handle("GET /api/getmessages/{chatId}", s.authMiddleware(s.getMessages))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
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

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	s.limiters.Stop()
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
