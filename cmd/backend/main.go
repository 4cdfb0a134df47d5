package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"picdrop/internal/db"
	"picdrop/internal/server"
)

func main() {
	// Local development reads a .env file; deployed environments set
	// real environment variables and the missing file is fine.
	_ = godotenv.Load()

	setupLogging()

	addr := getenvDefault("PICDROP_ADDR", ":8080")

	dsn := getenvDefault("DATABASE_URL", "")
	dbConn, err := server.OpenDB(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	defer func() { _ = dbConn.Close() }()

	log.Info().Msg("running migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	blobs, err := server.NewMinioStore(server.MinioConfig{
		Endpoint:  os.Getenv("PICDROP_S3_ENDPOINT"),
		AccessKey: os.Getenv("PICDROP_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("PICDROP_S3_SECRET_KEY"),
		Bucket:    os.Getenv("PICDROP_BUCKET"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("object store connect failed")
	}

	hub := server.NewHub()
	go hub.Run()

	srv := server.New(server.Config{
		Addr:          addr,
		AllowedOrigin: getenvDefault("PICDROP_ALLOWED_ORIGIN", ""),
		DB:            dbConn,
		Blobs:         blobs,
		Images:        server.NewImageStore(dbConn),
		Users:         server.NewUserStore(dbConn),
		Hub:           hub,
	})

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatal().Err(err).Msg("shutdown error")
		}
		log.Info().Msg("shutdown complete")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}
}

// setupLogging configures the global zerolog logger from the environment.
func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(getenvDefault("PICDROP_LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if getenvDefault("PICDROP_LOG_FORMAT", "") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
