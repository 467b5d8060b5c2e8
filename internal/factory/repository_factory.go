package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/phishing-scanner/internal/adapters/repository"
	"github.com/mikey/phishing-scanner/internal/config"
	"github.com/mikey/phishing-scanner/internal/core"
	"go.uber.org/zap"
)

// RepositoryFactory creates scan repositories based on configuration
type RepositoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRepository creates a scan repository based on the configuration
func (f *RepositoryFactory) CreateRepository() (core.ScanRepository, error) {
	storageType := f.cfg.GetString("storage.type")

	switch storageType {
	case "memory":
		return repository.NewMemoryRepository(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("storage.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return repository.NewSQLiteRepository(sqlitePath, f.logger)
	case "mysql":
		return repository.NewMySQLRepository(f.cfg.GetString("storage.mysql_dsn"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
