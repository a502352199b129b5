package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"payment-settlement-go/internal/api"
	"payment-settlement-go/internal/chain"
	"payment-settlement-go/internal/config"
	"payment-settlement-go/internal/database"
	"payment-settlement-go/internal/events"
	"payment-settlement-go/internal/formance"
	"payment-settlement-go/internal/fraud"
	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/session"
	"payment-settlement-go/internal/settlement"
	"payment-settlement-go/internal/store"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	BackendSQLite   = "sqlite"
	BackendFormance = "formance"
)

// init loads environment variables from .env file if it exists
func init() {
	// A missing .env is fine; variables can come from the shell or the container
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Ledger    store.LedgerStore
	Chain     *chain.Client
	Payments  *api.PaymentService
	Publisher events.Publisher
	Redis     *redis.Client
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires every collaborator of the payment service from cfg.
// On error, everything opened so far is closed.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	if err := config.ResolveChain(&cfg.Chain); err != nil {
		return nil, fmt.Errorf("unable to resolve chain settings: %w", err)
	}

	s := &Services{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	var err error
	if s.DbService, s.Ledger, err = InitializeLedger(ctx, cfg); err != nil {
		return nil, err
	}

	zap.L().Info("Connecting to chain",
		zap.String("network", cfg.Chain.Network),
		zap.String("rpc_url", cfg.Chain.RPCURL))
	if s.Chain, err = chain.NewClient(ctx, cfg.Chain); err != nil {
		return nil, err
	}

	fraudEngine := fraud.NewEngine(s.DbService, cfg.Fraud)
	engine := settlement.NewEngine(s.Chain, s.Chain, s.Ledger, cfg.Settlement, cfg.Chain.ChainID,
		settlement.WithFraudEngine(fraudEngine))

	guard, err := s.initializeGuard(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	s.Publisher = events.NoopPublisher{}
	if cfg.Events.KafkaBrokers != "" {
		zap.L().Info("Publishing settlement events",
			zap.String("brokers", cfg.Events.KafkaBrokers),
			zap.String("topic", cfg.Events.Topic))
		s.Publisher = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic)
	}

	s.Payments, err = api.NewPaymentService(api.Dependencies{
		Engine:    engine,
		Guard:     guard,
		Publisher: s.Publisher,
		Ledger:    s.Ledger,
		Alerts:    s.DbService,
		Wallet:    s.Chain,
		Fraud:     fraudEngine,
		Contract:  s.Chain.ContractAddress(),
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return s, nil
}

// InitializeLedger opens the SQLite database, which always holds security
// alerts, and the configured ledger store backend.
func InitializeLedger(ctx context.Context, cfg *models.Config) (*database.Service, store.LedgerStore, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(cfg.Ledger.Backend) {
	case "", BackendSQLite:
		return dbService, dbService, nil
	case BackendFormance:
		formanceService, err := formance.NewService(ctx, cfg.Ledger.Formance)
		if err != nil {
			dbService.Close()
			return nil, nil, err
		}
		return dbService, formanceService, nil
	default:
		dbService.Close()
		return nil, nil, fmt.Errorf("unknown ledger backend %q (want %s or %s)", cfg.Ledger.Backend, BackendSQLite, BackendFormance)
	}
}

func (s *Services) initializeGuard(ctx context.Context, cfg models.SessionConfig) (session.Guard, error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryGuard(), nil
	}

	s.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	zap.L().Info("Using redis settlement guard", zap.String("addr", cfg.RedisAddr))
	return session.NewRedisGuard(s.Redis, cfg.LockTTL), nil
}

func (s *Services) Close() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			zap.L().Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if s.Chain != nil {
		s.Chain.Close()
	}
	if s.Ledger != nil && s.Ledger != store.LedgerStore(s.DbService) {
		s.Ledger.Close()
	}
	if s.DbService != nil {
		s.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
