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

	"pdf-view-session/internal/config"
	"pdf-view-session/internal/handler"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container := config.NewContainer()

	// Handlers
	sessionHandler := handler.NewSessionHandler(
		container.Session,
		container.DocumentSource,
		container.Config.GetMaxFileSize(),
		container.Logger,
	)
	streamHandler := handler.NewStreamHandler(
		container.Session,
		container.Config.GetAllowedOrigins(),
		container.Logger,
	)
	authMiddleware := handler.NewControlTokenMiddleware(
		container.Config.GetControlToken(),
		container.Logger,
	)

	// Router
	router := handler.NewRouter(
		container.Config,
		sessionHandler,
		streamHandler,
		authMiddleware.Middleware,
	)

	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if container.Poller != nil {
		g.Go(func() error {
			return container.Poller.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		container.Logger.Info("Shutting down server...")
		streamHandler.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		container.Logger.Error("Server stopped with error", err)
		exitCode = 1
	}
	if err := container.Close(); err != nil {
		container.Logger.Error("Session teardown failed", err)
		exitCode = 1
	}

	container.Logger.Info("Server exited")
	stop()
	os.Exit(exitCode)
}
