package feedservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"fletea/internal/domain/user"
	"fletea/internal/general/config"
	"fletea/internal/general/jwt"
	"fletea/internal/general/logger"
	"fletea/internal/general/rabbitmq"
	"fletea/internal/general/websocket"
	"fletea/internal/observability"
	"fletea/internal/software/feed"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run wires the feed service and blocks until ctx is cancelled.
func Run(ctx context.Context, prefetch int) error {
	// set up a new logger and context for the feed service with a static request ID for startup logs
	logger := logger.New("feed-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the WebSocket gateway with connection metrics
	gw := websocket.NewGateway(logger, jwtManager)
	gw.OnConnChange(func(role user.Role, delta int) {
		observability.FeedClientsConnected.WithLabelValues(role.String()).Add(float64(delta))
	})

	// consume the trip feed queue in the background
	consumer := feed.NewConsumer(logger, rmq, gw)
	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Run(ctx, prefetch)
	}()

	// set up the WebSocket routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/rider", gw.ConnectRider)
	mux.HandleFunc("GET /ws/driver", gw.ConnectDriver)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebSocket.Port),            // listen on the specified port
		Handler:           mux,                                               // WebSocket upgrades plus metrics/health
		ReadHeaderTimeout: 5 * time.Second,                                   // time to read headers
		IdleTimeout:       60 * time.Second,                                  // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx }, // pass base ctx to all handlers
	}

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Feed Service started on port %d", cfg.WebSocket.Port),
		map[string]any{"port": cfg.WebSocket.Port, "prefetch": prefetch},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation, consumer failure, or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-consumerErr:
		if err != nil {
			logger.Error(ctx, "feed_consumer_error", "Trip feed consumer terminated with error", err, nil)
			return err
		}
		return nil
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.WebSocket.Port})
			return err
		}
		return nil
	}

	return nil
}
