package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/perfwatch/internal/delivery/http/handler"
	"github.com/user/perfwatch/internal/delivery/http/router"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/usecase"
	"go.uber.org/zap"
)

func newServeCmd(envFile *string) *cobra.Command {
	var noWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the collection workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.logger

			recurring := a.recurring()
			dispatcher := a.dispatcher()
			scheduler, err := usecase.NewScheduler(dispatcher, recurring, a.cfg.DispatchCron, a.cfg.RecurringSyncCron, log)
			if err != nil {
				return err
			}
			scheduler.Start(ctx)
			defer scheduler.Stop()

			if !noWorkers {
				stopWorkers := a.startWorkers(ctx)
				defer stopWorkers()
			}

			queues := make(map[entity.QueueName]handler.QueueCounter, len(a.queues))
			for name, q := range a.queues {
				queues[name] = q
			}
			h := handler.NewHandler(handler.Deps{
				Channels:   usecase.NewChannelUseCase(a.channels, recurring, log),
				Pages:      usecase.NewPageUseCase(a.channels, a.pages, recurring, log),
				Providers:  usecase.NewProviderUseCase(a.providers),
				Metrics:    usecase.NewMetricsUseCase(a.metrics, a.pages),
				Dispatcher: dispatcher,
				Queues:     queues,
				HealthChecks: map[string]handler.HealthCheck{
					"postgres": a.db.Ping,
					"redis":    func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() },
				},
			}, log)

			server := &http.Server{
				Addr:         ":" + a.cfg.ServerPort,
				Handler:      router.New(h, log),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 70 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("Starting server", zap.String("port", a.cfg.ServerPort))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			log.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("Server forced to shutdown", zap.Error(err))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWorkers, "no-workers", false, "serve the API and scheduler only")
	return cmd
}
