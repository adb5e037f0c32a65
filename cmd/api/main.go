package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/auro-chat/backend/internal/config"
	"github.com/zhouzirui/auro-chat/backend/internal/handler"
	"github.com/zhouzirui/auro-chat/backend/internal/service/engine"
	"github.com/zhouzirui/auro-chat/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogger(cfg.Log)

	backend, err := storage.Open(ctx, storage.Options{
		Driver:    cfg.Storage.Driver,
		Path:      cfg.Storage.Path,
		RedisAddr: cfg.Storage.RedisAddr,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open storage backend")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close storage backend")
		}
	}()
	log.Info().Str("driver", cfg.Storage.Driver).Str("path", cfg.Storage.Path).Msg("storage backend ready")

	chatEngine, err := engine.New(ctx, engine.Options{
		Backend:        backend,
		TimeUnit:       cfg.Chat.TimeUnit,
		PresencePeriod: cfg.Chat.PresencePeriod(),
		FlushInterval:  cfg.Storage.FlushInterval,
		SystemTheme:    cfg.Chat.SystemThemePreference,
		Seed:           cfg.Chat.Seed,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build chat engine")
	}
	chatEngine.Start()

	router := handler.NewRouter(chatEngine)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", cfg.Server.Addr).Msg("chat backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := chatEngine.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("failed to flush chat state on shutdown")
	}
	log.Info().Msg("chat backend stopped")
}

// runServer serves until ctx is cancelled or the listener fails, then shuts
// the server down gracefully. Request contexts are cancelled as soon as
// shutdown begins so long-lived streams let Shutdown finish.
func runServer(ctx context.Context, srv *http.Server) error {
	requestCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	srv.BaseContext = func(net.Listener) context.Context { return requestCtx }
	srv.RegisterOnShutdown(cancelRequests)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
