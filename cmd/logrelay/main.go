package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/serroba/shorturl-service/internal/logship"
	"go.uber.org/zap"
)

// Options configures the log relay.
type Options struct {
	Port           int    `default:"4000" help:"Port to listen on" short:"p"`
	BearerToken    string `help:"Token clients must present on GET /"`
	CollectorURL   string `help:"Remote collector entries are forwarded to; empty keeps them local"`
	CollectorToken string `help:"Bearer token sent to the remote collector"`
	LogFormat      string `default:"json" help:"Local log format: json or console"`
	LogBuffer      int    `default:"1024" help:"Entries queued before new ones are dropped"`
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func main() {
	envErr := godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger, err := newLogger(options.LogFormat)
		if err != nil {
			panic(err)
		}

		if envErr != nil {
			logger.Debug(".env not loaded, relying on environment", zap.Error(envErr))
		}

		var sink logship.Sink
		if options.CollectorURL != "" {
			sink = logship.NewCollectorSink(options.CollectorURL, options.CollectorToken,
				&http.Client{Timeout: 5 * time.Second})
		}

		shipper := logship.NewShipper(sink, options.LogBuffer, logger)

		router := chi.NewMux()
		api := humachi.New(router, huma.DefaultConfig("Log Relay", "1.0.0"))
		logship.RegisterRelayRoutes(api, logship.NewRelayHandler(shipper, options.BearerToken))

		var server *http.Server

		hooks.OnStart(func() {
			if err := shipper.Start(context.Background()); err != nil {
				logger.Fatal("failed to start shipper", zap.Error(err))
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			shipper.Log(logship.StackBackend, logship.LevelInfo, logship.PackageService,
				fmt.Sprintf("Log service started on port %d", options.Port))

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			_ = shipper.Shutdown()
			_ = logger.Sync()
		})
	})

	cli.Run()
}
