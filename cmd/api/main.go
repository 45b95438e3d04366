package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/config"
	"github.com/zhouzirui/research-partner/backend/internal/handler"
	"github.com/zhouzirui/research-partner/backend/internal/logging"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
	"github.com/zhouzirui/research-partner/backend/internal/scheduler"
	"github.com/zhouzirui/research-partner/backend/internal/service/completion"
	"github.com/zhouzirui/research-partner/backend/internal/service/conversation"
	"github.com/zhouzirui/research-partner/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	packs := prompt.NewMemoryStore(prompt.Seed())
	if _, ok := packs.Find(cfg.Session.DefaultLocale); !ok {
		logger.Fatal("default locale has no prompt pack", zap.String("locale", cfg.Session.DefaultLocale))
	}
	sessions := session.NewService(packs)

	client, err := completion.NewClient(ctx, cfg.AI, logger)
	if err != nil {
		// 初始化失败不可恢复，不进入服务循环
		logger.Fatal("completion client setup failed",
			zap.String("provider", cfg.AI.Provider),
			zap.Error(err),
		)
	}
	logger.Info("completion client ready", zap.String("provider", cfg.AI.Provider))

	convo := conversation.NewService(sessions, packs, client, logger)

	reaper := scheduler.New(sessions, cfg.Session.IdleTTL, logger)
	if err := reaper.Start(cfg.Session.ReapSpec); err != nil {
		logger.Fatal("failed to start session reaper", zap.Error(err))
	}
	defer reaper.Stop()

	router := handler.NewRouter(handler.Deps{
		Packs:         packs,
		Sessions:      sessions,
		Conversation:  convo,
		DefaultLocale: cfg.Session.DefaultLocale,
		SecureCookie:  cfg.Session.CookieSecure,
		Logger:        logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("research partner backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
