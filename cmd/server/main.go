package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daveeeeeehike/HikingUtility/internal/api"
	"github.com/daveeeeeehike/HikingUtility/internal/config"
	"github.com/daveeeeeehike/HikingUtility/internal/database"
	"github.com/daveeeeeehike/HikingUtility/internal/gpx"
	"github.com/daveeeeeehike/HikingUtility/internal/middleware"
	"github.com/daveeeeeehike/HikingUtility/internal/recorder"
	"github.com/daveeeeeehike/HikingUtility/internal/repository"
	"github.com/daveeeeeehike/HikingUtility/internal/service"
	"github.com/daveeeeeehike/HikingUtility/internal/storage"
	"github.com/daveeeeeehike/HikingUtility/internal/stream"
)

func main() {
	issueToken := flag.String("issue-token", "", "print an API token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of an issued token")
	flag.Parse()

	cfg := config.Load()

	if *issueToken != "" {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is not set")
		}
		token, err := middleware.IssueToken(cfg.JWTSecret, *issueToken, *tokenTTL)
		if err != nil {
			log.Fatal("Failed to issue token:", err)
		}
		fmt.Println(token)
		return
	}

	gin.SetMode(gin.ReleaseMode)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := Run(context.Background(), cfg, signals, nil); err != nil {
		log.Fatal("Server exited with error: ", err)
	}
}

// Run builds the application, serves until a signal arrives or ctx is done,
// then shuts down and saves any unfinished recording. ready, when non-nil,
// receives the bound address once the listener is open.
func Run(ctx context.Context, cfg config.Config, signals <-chan os.Signal, ready chan<- net.Addr) error {
	conn, err := database.OpenMigrated(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer conn.Close()
	log.Printf("[Server] Database ready: %s", cfg.DBPath)

	rdb := database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
	if rdb != nil {
		defer rdb.Close()
	}

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	hub := stream.NewHub(hubCtx, rdb, cfg.RedisChannel)

	decoder := gpx.NewDecoder(gpx.ParseMode(cfg.GPXDecoder))
	store, err := storage.NewFileStore(cfg.TracksDir, repository.NewTrackRepository(conn), decoder)
	if err != nil {
		return err
	}
	if _, err := store.Reindex(ctx); err != nil {
		log.Printf("[Server] Reindex failed: %v", err)
	}

	trackService := service.NewTrackService(store, decoder, service.TrackServiceOptions{
		OSMTraceURL:    cfg.OSMTraceURL,
		OSMTimeout:     cfg.OSMFetchTimeout,
		MaxImportBytes: cfg.MaxImportBytes,
	})
	recordingService := service.NewRecordingService(store, hub, repository.NewSessionRepository(conn),
		recorder.WithCheckpointEvery(cfg.CheckpointEvery),
		recorder.WithPaceWindow(cfg.CurrentPaceWindow),
	)

	var limiter *middleware.RateLimiter
	if cfg.IngestRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.IngestRateLimit, time.Minute)
		defer limiter.Stop()
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		TrackService:     trackService,
		RecordingService: recordingService,
		Hub:              hub,
		IngestLimiter:    limiter,
	})

	ln, err := net.Listen("tcp", cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Port, err)
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Printf("[Server] Listening on %s", ln.Addr())
	if ready != nil {
		ready <- ln.Addr()
	}

	var serveErr error
	select {
	case sig := <-signals:
		log.Printf("[Server] Received %v, shutting down", sig)
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] HTTP shutdown: %v", err)
	}
	if err := recordingService.Close(shutdownCtx); err != nil {
		log.Printf("[Server] Recording shutdown: %v", err)
	}
	return serveErr
}
