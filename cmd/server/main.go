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

	"github.com/npezzotti/go-chatapp/internal/api"
	"github.com/npezzotti/go-chatapp/internal/config"
	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/images"
	"github.com/npezzotti/go-chatapp/internal/server"
	"github.com/npezzotti/go-chatapp/internal/stats"
)

const (
	defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="
	defaultDSN        = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	maxBodyBytes   int64
	s3Cfg          config.S3Config
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", envOr("GOCHAT_DSN", defaultDSN), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("GOCHAT_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Int64Var(&maxBodyBytes, "max-body-bytes", 0, "maximum request body size in bytes (0 keeps the default)")
	flag.StringVar(&s3Cfg.Bucket, "s3-bucket", "", "bucket for uploaded images; uploads are disabled when empty")
	flag.StringVar(&s3Cfg.Region, "s3-region", "us-east-1", "region of the image bucket")
	flag.StringVar(&s3Cfg.Endpoint, "s3-endpoint", "", "custom S3 compatible endpoint, e.g. http://localhost:9000")
	flag.StringVar(&s3Cfg.AccessKey, "s3-access-key", "", "static access key for the image bucket")
	flag.StringVar(&s3Cfg.SecretKey, "s3-secret-key", "", "static secret key for the image bucket")
	flag.StringVar(&s3Cfg.PublicURL, "s3-public-url", "", "public base URL of uploaded images")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-chat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	if maxBodyBytes > 0 {
		cfg.MaxBodyBytes = maxBodyBytes
	}

	var store images.ImageStore
	if s3Cfg.Bucket != "" {
		if err := cfg.WithS3(s3Cfg); err != nil {
			logger.Fatal("config:", err)
		}

		s3Store, err := images.NewS3Store(context.Background(), cfg.S3)
		if err != nil {
			logger.Fatal("image store:", err)
		}
		store = s3Store
	} else {
		logger.Println("no s3 bucket configured, image uploads are disabled")
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, dbConn, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	srv := api.NewGoChatApp(mux, logger, chatServer, dbConn, store, cfg)

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
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
