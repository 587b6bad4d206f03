package backend

import (
	"context"
	"fmt"
	"log/slog"

	"billfold/internal/store/memory"
	mongostore "billfold/internal/store/mongo"
	sqlitestore "billfold/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new store factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, cfg Config) (*Result, error) {
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case MemoryBackend:
		return f.createMemoryStore(cfg)
	case SQLiteBackend:
		return f.createSQLiteStore(cfg)
	case MongoBackend:
		return f.createMongoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createMemoryStore(cfg Config) (*Result, error) {
	st := memory.New()

	f.logger.Info("Initialized memory store", "user_id", cfg.UserID)

	return &Result{
		Store:   st,
		Cleanup: st.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(cfg Config) (*Result, error) {
	repo, err := sqlitestore.New(cfg.SQLiteDBPath, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite store",
		"db_path", cfg.SQLiteDBPath,
		"user_id", cfg.UserID)

	return &Result{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMongoStore(ctx context.Context, cfg Config) (*Result, error) {
	st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Mongo: %w", err)
	}

	f.logger.Info("Initialized Mongo store",
		"database", cfg.MongoDatabase,
		"user_id", cfg.UserID)

	return &Result{
		Store:   st,
		Cleanup: st.Close,
	}, nil
}
