package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/grpc"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/config"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/logger"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/batch"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A missing .env file is fine; the environment and config file still apply
	_ = godotenv.Load()

	var configPath string

	rootCmd := &cobra.Command{
		Use:           "financeserver",
		Short:         "Valuation and temporal-consistency engine for personal finance positions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (default: environment only)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC admin server, the recompute queue and the cron scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, serve)
		},
	}

	recomputeCmd := &cobra.Command{
		Use:       "recompute <interest|crypto|fund>",
		Short:     "Recompute every position of an asset class and wait for the result",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"interest", "crypto", "fund"},
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := domain.ParseAssetClass(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), configPath, func(ctx context.Context, a *app) error {
				return recompute(ctx, a, class)
			})
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, configPath == "")
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			db, err := openDB(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Migrate(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd, recomputeCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "financeserver:", err)
		os.Exit(1)
	}
}

// withApp loads the config, builds the logger and the app, runs fn and tears everything down
func withApp(ctx context.Context, configPath string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(configPath, configPath == "")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func serve(ctx context.Context, a *app) error {
	log := a.logger

	// 1. Recompute queue
	queueCtx, stopQueue := context.WithCancel(context.Background())
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		a.queue.Run(queueCtx, a.cfg.Batch.Concurrency)
	}()

	// 2. Cron
	scheduler := batch.NewScheduler(a.queue, log)
	if a.cfg.Cron.Enabled {
		specs := map[domain.AssetClass]string{
			domain.AssetClassInterest: a.cfg.Cron.Interest,
			domain.AssetClassCrypto:   a.cfg.Cron.Crypto,
			domain.AssetClassFund:     a.cfg.Cron.Fund,
		}
		for _, class := range domain.AssetClasses {
			if specs[class] == "" {
				continue
			}
			if _, err := scheduler.Schedule(specs[class], class); err != nil {
				stopQueue()
				return err
			}
		}
		scheduler.Start()
		log.Info("cron scheduler started", zap.Int("entries", scheduler.Entries()))
	}

	// 3. gRPC
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(
		grpcadapter.LoggingInterceptor(log),
		grpcadapter.AuthInterceptor(a.cfg.GRPC.AuthToken, "/grpc.health.v1.Health/", "/grpc.reflection."),
	))

	grpcadapter.RegisterValuationServiceServer(grpcServer, grpcadapter.NewServer(
		a.engine, a.snapshots, a.queue, a.positions, a.summary,
	))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if a.cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
	if err != nil {
		stopQueue()
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.GRPC.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", a.cfg.GRPC.Addr))
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err = <-serveErr:
		log.Error("gRPC server stopped", zap.Error(err))
	}

	healthServer.Shutdown()
	grpcServer.GracefulStop()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop(stopCtx)
	stopQueue()
	<-queueDone

	log.Info("server stopped")
	return err
}

func recompute(ctx context.Context, a *app, class domain.AssetClass) error {
	report, err := a.driver.RecomputeAll(ctx, class)
	if err != nil {
		return err
	}

	for _, f := range report.Failures {
		a.logger.Error("position failed", zap.Stringer("key", f.Key), zap.Error(f.Err))
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d of %d %s positions failed", len(report.Failures), report.Total, class)
	}
	return nil
}
