package api

import (
	"net/http"
	"testing"

	"github.com/chatfastnow/go-chatserver/internal/config"
	"github.com/chatfastnow/go-chatserver/internal/database"
	"github.com/chatfastnow/go-chatserver/internal/server"
	"github.com/chatfastnow/go-chatserver/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewChatApp(t *testing.T) {
	mux := http.NewServeMux()
	logger := testutil.TestLogger(t)
	cs := &server.ChatServer{}
	db := &database.MockChatRepository{}
	cfg := &config.Config{
		ServerAddr:     "localhost:8080",
		MongoURI:       "mongodb://localhost:27017",
		DatabaseName:   "chatserver",
		SigningKey:     []byte("secret"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	app := NewChatApp(mux, logger, cs, db, nil, cfg)
	defer app.limiters.Stop()

	assert.NotNil(t, app, "expected app to be initialized")
	assert.NotNil(t, app.mux, "expected http server to be initialized")
	assert.NotNil(t, app.limiters, "expected rate limiter store to be initialized")
	assert.Equal(t, app.log, logger, "expected logger to be set")
	assert.Equal(t, app.db, db, "expected db to be set")
	assert.Equal(t, app.cs, cs, "expected chat server to be set")
	assert.Equal(t, app.signingKey, cfg.SigningKey, "expected signing key to be set")
	assert.Equal(t, app.allowedOrigins, cfg.AllowedOrigins, "expected allowed origins to be set")
	assert.Equal(t, app.mux.Addr, cfg.ServerAddr, "expected server address to match config")
}
