// Command conference serves the conference lifecycle HTTP API and can apply
// its database schema.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/access"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/config"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/database"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/handler"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/notify"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository/memstore"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:           "conference",
		Short:         "CME conference event, registration and certificate service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the database schema before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			pool, err := database.NewPool(cmd.Context(), cfg.DB, logger)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer pool.Close()
			if err := database.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("schema applied")
			return nil
		},
	}
}

func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

type stores struct {
	events        service.EventStore
	registrations service.RegistrationStore
	certificates  service.CertificateStore
	close         func()
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool) (stores, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		mem := memstore.New()
		return stores{mem.Events(), mem.Registrations(), mem.Certificates(), func() {}}, nil
	}

	pool, err := database.NewPool(ctx, cfg.DB, logger)
	if err != nil {
		return stores{}, fmt.Errorf("database: %w", err)
	}
	logger.Info("connected to postgres", "host", cfg.DB.Host, "db", cfg.DB.Name)
	if migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
	}
	return stores{
		events:        repository.NewEventRepository(pool),
		registrations: repository.NewRegistrationRepository(pool),
		certificates:  repository.NewCertificateRepository(pool),
		close:         pool.Close,
	}, nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool) error {
	st, err := openStores(ctx, cfg, logger, migrate)
	if err != nil {
		return err
	}
	defer st.close()

	registry := prometheus.NewRegistry()
	metrics, err := service.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics),
		service.WithNotifier(notify.NewLogSender(logger), cfg.NotifyTimeout),
	}
	certs, err := service.NewCertificateService(st.events, st.registrations, st.certificates, cfg.VerifyCacheSize, opts...)
	if err != nil {
		return err
	}
	router := handler.NewRouter(handler.Services{
		Events:        service.NewEventService(st.events, st.registrations, opts...),
		Registrations: service.NewRegistrationService(st.events, st.registrations, opts...),
		Certificates:  certs,
	}, access.RoleAuthorizer{}, registry, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
