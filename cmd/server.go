package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elective-allocation/internal/api/router"
	"elective-allocation/internal/config"
	"elective-allocation/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	port string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP API server",
	Long: `Start the allocation HTTP API together with the notification workers.
The server shuts down gracefully on SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port for the server to listen on (overrides server.port)")
}

func startServer() {
	cfg := config.Get()

	if port != "" {
		cfg.Server.Port = port
	}

	c, err := buildComponents(context.Background(), cfg, buildOptions{})
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}
	defer c.close()

	c.notifications.StartWorkers()

	r := router.NewRouter(router.Dependencies{
		Allocations:    c.allocations,
		Snapshots:      c.snapshots,
		Preferences:    c.preferences,
		ChangeRequests: c.changeRequests,
		Idempotency:    c.idempotency,
		Tokens:         c.tokens,
		Health:         c.health,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:        r,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	logger.Info("Stopping notification workers...")
	c.notifications.StopWorkers()

	logger.Info("Server exited")
}
