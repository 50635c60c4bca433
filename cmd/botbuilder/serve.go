package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/cli"
	httpAdapter "github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/http"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP channel server",
		Long: `Serves the bot over HTTP:
  POST /api/messages   one activity in, one turn result out
  GET  /api/stream     WebSocket, one conversation per connection
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics (when enabled)`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolP("watch", "w", false, "Reload the definition when its files change")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config.HTTP
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Address = addr
	}

	reloader, err := cli.NewReloader(env)
	if err != nil {
		return err
	}

	opts := []httpAdapter.Option{
		httpAdapter.WithLogger(env.Logger),
		httpAdapter.WithMaxInputSize(cfg.MaxInputSize),
		httpAdapter.WithTurnTimeout(cfg.TurnTimeout),
		httpAdapter.WithOriginPatterns(cfg.AllowedOrigins...),
	}
	if cfg.Channel != "" {
		opts = append(opts, httpAdapter.WithDefaultChannel(cfg.Channel))
	}
	if env.Registry != nil {
		opts = append(opts, httpAdapter.WithGatherer(env.Registry))
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           httpAdapter.NewHandler(reloader, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		go func() {
			if err := reloader.Watch(ctx); err != nil {
				env.Logger.Error("Watcher stopped", "err", err)
			}
		}()
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		env.Logger.Info("Starting botbuilder server", "address", srv.Addr, "bot", env.Config.Bot, "root", reloader.Root())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		env.Logger.Info("Shutting down")
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		env.Logger.Info("Server stopped gracefully")
		return nil
	}
}
