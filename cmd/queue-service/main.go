package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queueease/queue-service/internal/config"
	"queueease/queue-service/internal/httpapi"
	"queueease/queue-service/internal/notify"
	"queueease/queue-service/internal/store/postgres"
	"queueease/queue-service/internal/telemetry"
	"queueease/queue-service/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()

	shutdownTelemetry := telemetry.Setup("queue-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{
		LeaveWindow:    cfg.LeaveWindow,
		TransferWindow: cfg.TransferWindow,
		CancelCutoff:   cfg.CancelCutoff,
	})
	handler := httpapi.NewHandler(st)
	sender := notify.NewSender(cfg.PushProvider)

	sched := worker.New(st, sender, worker.Config{
		BatchSize:        cfg.SchedulerBatchSize,
		DefaultFrequency: cfg.DefaultNotifyFrequency,
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.SchedulerInterval > 0 {
		go worker.Start(workerCtx, cfg.SchedulerInterval, sched)
	}

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(handler.Routes()), "queue-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("queue-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
