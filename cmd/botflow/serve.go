package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/botflow/pkg/botflow/config"
	"github.com/randalmurphal/botflow/pkg/botflow/emit"
	bferrors "github.com/randalmurphal/botflow/pkg/botflow/errors"
	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
	"github.com/randalmurphal/botflow/pkg/botflow/observability"
	"github.com/randalmurphal/botflow/pkg/botflow/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept webhook deliveries over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				settings.Server.Addr = addr
			}
			logger, err := newLogger(os.Stderr, settings.Log)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return serve(cmd.Context(), settings, logger)
		},
	}
	cmd.Flags().String("addr", "", "Listen address, overrides server.addr.")
	return cmd
}

func serve(ctx context.Context, settings config.Settings, logger *slog.Logger) error {
	metrics := observability.NewMetricsRecorder()
	spans := observability.NewSpanManager()

	cache, err := inbound.NewCriteriaCache(settings.Filter.CacheSize)
	if err != nil {
		return err
	}
	defer cache.Close()

	deadLetter := emit.NewDeadLetterQueue(settings.NATS.DeadLetterSize)
	deadLetter.OnEnqueue = func(f emit.FailedEvent) {
		logger.Error("event parked in dead letter queue",
			"event_id", f.Event.EventID,
			"category", f.Category,
			"attempts", f.AttemptCount,
		)
	}

	sink, replayTo, err := newSink(settings, logger, metrics, spans, deadLetter)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("close sink", "error", err)
		}
	}()

	pipeline := inbound.NewPipeline(
		inbound.WithLogger(logger),
		inbound.WithMetrics(metrics),
		inbound.WithSpanManager(spans),
	)
	srv := server.New(pipeline,
		server.WithLogger(logger),
		server.WithSink(sink),
		server.WithCriteria(inbound.StaticCriteria{
			ChatIDs: settings.Filter.ChatIDs,
			UserIDs: settings.Filter.UserIDs,
			Cache:   cache,
		}),
		server.WithRetryPolicy(retryPolicy(settings.Retry), settings.Retry.MaxRetries),
		server.WithMaxBodyBytes(settings.Server.MaxBodyBytes),
		server.WithDeadLetters(deadLetter, replayTo),
	)

	httpServer := &http.Server{
		Addr:         settings.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  settings.Server.ReadTimeout,
		WriteTimeout: settings.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("botflow listening", "addr", settings.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// newSink publishes to NATS when a URL is configured and logs events
// otherwise. NATS publishes go through the retry handler and park in
// deadLetter once retries run out. The second sink is the bare
// destination used for dead letter replays.
func newSink(
	settings config.Settings,
	logger *slog.Logger,
	metrics observability.MetricsRecorder,
	spans observability.SpanManager,
	deadLetter *emit.DeadLetterQueue,
) (emit.Sink, emit.Sink, error) {
	if settings.NATS.URL == "" {
		logger.Warn("nats.url not set, events are logged only")
		sink := emit.NewLogSink(logger)
		return sink, sink, nil
	}
	natsSink, err := emit.ConnectNATS(settings.NATS.URL, settings.NATS.Subject)
	if err != nil {
		return nil, nil, err
	}
	handler := bferrors.NewHandler(
		bferrors.WithRetryPolicy(retryPolicy(settings.Retry)),
		bferrors.WithMaxRetries(settings.Retry.MaxRetries),
		bferrors.WithLogger(logger),
		bferrors.WithMetrics(metrics),
		bferrors.WithSpanManager(spans),
	)
	return emit.NewRetryingSink(natsSink, handler, emit.WithDeadLetter(deadLetter)), natsSink, nil
}
