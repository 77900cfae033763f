package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chatfastnow/go-chatserver/internal/api"
	"github.com/chatfastnow/go-chatserver/internal/config"
	"github.com/chatfastnow/go-chatserver/internal/database"
	"github.com/chatfastnow/go-chatserver/internal/server"
	"github.com/chatfastnow/go-chatserver/internal/stats"
	"github.com/joho/godotenv"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	mongoURI       string
	dbName         string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; flags and real environment variables win
	_ = godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("SERVER_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&mongoURI, "mongo-uri", envOr("MONGO_URI", "mongodb://localhost:27017"), "mongodb connection URI")
	flag.StringVar(&dbName, "db-name", envOr("DB_NAME", "chatserver"), "mongodb database name")
	flag.StringVar(&signingKey, "signing-key", os.Getenv("SIGNING_KEY"), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		allowedOrigins = strings.Split(envOr("ALLOWED_ORIGINS", "http://localhost:3000"), ",")
	}

	logger := log.New(os.Stderr, "[chatserver] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, mongoURI, dbName, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	ctx := context.Background()

	repo, err := database.NewMongoChatRepository(ctx, cfg.MongoURI, cfg.DatabaseName)
	if err != nil {
		logger.Fatal("db connect: ", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			logger.Println("db close:", err)
		}
	}()

	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("ensure indexes: ", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.RegisterMetric(stats.MessagesSent)

	chatServer := server.NewChatServer(logger, statsUpdater)

	srv := api.NewChatApp(mux, logger, chatServer, repo, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	chatServer.Shutdown()

	logger.Println("shutdown complete")
}
