package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/taskgraph"
	httpAdapter "github.com/aretw0/taskgraph/pkg/adapters/http"
	"github.com/aretw0/taskgraph/pkg/adapters/memory"
	"github.com/aretw0/taskgraph/pkg/consumer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine behind a JSON API over HTTP. Processed events are kept in
memory for /events, streamed over /events/stream and counted on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFromFlags(cmd)
		if err != nil {
			return err
		}

		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetString("port")
		capacity, _ := cmd.Flags().GetInt("history")

		metrics, err := consumer.NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		store := memory.NewStore(capacity)
		streams := httpAdapter.NewStreamManager(logger)

		exposed, err := redactFromFlags(cmd, store, streams)
		if err != nil {
			return err
		}
		engine, err := engineFromFlags(cmd, logger, append(exposed, consumer.NewMetricsConsumer(metrics))...)
		if err != nil {
			return err
		}

		handler := httpAdapter.NewHandler(engine,
			httpAdapter.WithEvents(store),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithMetricsHandler(promhttp.Handler()),
			httpAdapter.WithVersion(strings.TrimSpace(taskgraph.Version)),
			httpAdapter.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:              net.JoinHostPort(host, port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting taskgraph server", "address", srv.Addr, "tasks", len(engine.Tasks()))
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("close server: %w", err)
				}
			}
			logger.Info("Taskgraph server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "Interface to listen on")
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Int("history", 100, "Number of recent events kept for /events")
}
