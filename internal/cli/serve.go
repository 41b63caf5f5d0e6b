package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"kifu_editor/internal/adapters"
	"kifu_editor/internal/bootstrap"
	analysisDelivery "kifu_editor/internal/delivery/analysis"
	kifuDelivery "kifu_editor/internal/delivery/kifu"
	"kifu_editor/internal/kifu"
	ownMiddleware "kifu_editor/internal/middleware"
	repo "kifu_editor/internal/repository"
	kifuuc "kifu_editor/internal/usecase/kifu"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.Setup(envFile)
		if err != nil {
			return fmt.Errorf("failed to setup configuration: %w", err)
		}
		logger, err := bootstrap.NewLogger(*cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go handleShutdown(cancel, logger)

		return serve(ctx, *cfg, logger)
	},
}

type storageAdapters struct {
	store  kifuuc.KifuStore
	closer []func(context.Context) error
}

func (s *storageAdapters) Close(ctx context.Context) {
	for i := len(s.closer) - 1; i >= 0; i-- {
		_ = s.closer[i](ctx)
	}
}

func initStorageAdapters(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config) (*storageAdapters, error) {
	out := &storageAdapters{}

	switch cfg.StorageBackend {
	case bootstrap.StorageRedis:
		mongoAdapter := adapters.NewAdapterMongo(&cfg)
		if err := mongoAdapter.Init(ctx); err != nil {
			return nil, err
		}
		out.closer = append(out.closer, mongoAdapter.Close)

		redisAdapter := adapters.NewAdapterRedis(&cfg)
		if err := redisAdapter.Init(ctx); err != nil {
			out.Close(ctx)
			return nil, err
		}
		out.closer = append(out.closer, redisAdapter.Close)

		out.store = repo.NewKifuRepository(cfg, log, redisAdapter.GetClient(), mongoAdapter.Database)
	case bootstrap.StorageBadger:
		badgerAdapter := adapters.NewAdapterBadger(&cfg)
		if err := badgerAdapter.Init(ctx); err != nil {
			return nil, err
		}
		out.closer = append(out.closer, badgerAdapter.Close)

		out.store = repo.NewBadgerKifuStorage(badgerAdapter.GetDB(), log, cfg.SessionTTL(), cfg.PageLimitRecords)
	case bootstrap.StorageMemory:
		out.store = repo.NewMapKifuStorage(cfg.PageLimitRecords)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	log.Infof("storage backend %s initialized", cfg.StorageBackend)
	return out, nil
}

// initLegality dials the legality service. Without an address records
// without an origin square are always taken for drops.
func initLegality(log *zap.SugaredLogger, cfg bootstrap.Config) (kifu.ReachOracle, func() error, error) {
	if cfg.LegalityGrpcAddr == "" {
		log.Info("no legality service configured")
		return nil, func() error { return nil }, nil
	}
	conn, err := grpc.NewClient(cfg.LegalityGrpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial legality service: %w", err)
	}
	return repo.NewLegalityClient(conn, log, cfg.LegalityTimeout()), conn.Close, nil
}

func newRouter(cfg bootstrap.Config, handler *kifuDelivery.KifuHandler) *chi.Mux {
	r := chi.NewRouter()
	if cfg.IsLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)
	handler.Routes(r)
	return r
}

func serve(ctx context.Context, cfg bootstrap.Config, logger *zap.SugaredLogger) error {
	storage, err := initStorageAdapters(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer storage.Close(context.Background())

	oracle, closeOracle, err := initLegality(logger, cfg)
	if err != nil {
		return err
	}
	defer closeOracle()

	kifuUC := kifuuc.NewKifuUseCase(storage.store, oracle)

	grpcServer := grpc.NewServer()
	analysisDelivery.RegisterAnalysisSyncServer(grpcServer, analysisDelivery.NewAnalysisHandler(logger, kifuUC))
	lis, err := net.Listen("tcp", ":"+cfg.GrpcPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: newRouter(cfg, kifuDelivery.NewKifuHandler(cfg, logger, kifuUC)),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC server is running on port %s", cfg.GrpcPort)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		logger.Infof("Server is running on port %s", cfg.ServerPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warnf("http shutdown: %v", shutdownErr)
	}
	grpcServer.GracefulStop()
	logger.Info("servers stopped")
	return err
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
}
