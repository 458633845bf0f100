package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/bootstrap"
	"github.com/avanleeuwen/invoice-pipeline/internal/config"
	"github.com/avanleeuwen/invoice-pipeline/internal/observability/logging"
	"github.com/avanleeuwen/invoice-pipeline/internal/observability/metrics"
)

const (
	serviceName = "invoice-worker"
	jobTimeout  = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	log := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		log.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeImportQueued(ctx, func(handlerCtx context.Context, jobID string) error {
		workerMetrics.StartJob()
		start := time.Now()

		if job, lookupErr := app.Jobs.GetByID(handlerCtx, jobID); lookupErr == nil && job != nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(job.CreatedAt))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		processErr := app.Processor.ProcessJob(processCtx, jobID)
		workerMetrics.FinishJob(serviceName, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}
