// Package backend opens ledger stores for the configured backend, both at
// start-up and when a session swaps to another ledger file.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"conti/internal/config"
	"conti/internal/ledger"
	"conti/internal/services"
	"conti/internal/storage"
	"conti/internal/storage/memory"
)

// ErrInvalidLedgerPath rejects ledger files outside the ledger directory or
// without a database extension.
var ErrInvalidLedgerPath = errors.New("invalid ledger path")

var ledgerExtensions = []string{".db", ".sqlite", ".sqlite3"}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:              backendType,
		SQLiteDBPath:      appConfig.SQLiteDBPath,
		LedgerDir:         appConfig.LedgerDir,
		CategoryCacheSize: appConfig.CategoryCacheSize,
		CategoryCacheTTL:  appConfig.CategoryCacheTTL,
		DataDirectory:     "data",
	}, nil
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	switch config.Type {
	case SQLiteBackend:
		st, err := f.openSQLite(config, config.SQLiteDBPath)
		if err != nil {
			return nil, err
		}
		return &BackendResult{Store: st, Label: config.SQLiteDBPath}, nil
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
		return &BackendResult{Store: memory.NewFromFiles(dataDir), Label: "memory"}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) Opener(config Config) services.Opener {
	if config.Type != SQLiteBackend {
		return nil
	}
	return func(ctx context.Context, name string) (ledger.Store, error) {
		path, err := LedgerPath(config.LedgerDir, name)
		if err != nil {
			return nil, err
		}
		f.logger.InfoContext(ctx, "Opening ledger", "path", path)
		return f.openSQLite(config, path)
	}
}

func (f *DefaultFactory) openSQLite(config Config, path string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(path, storage.Options{
		CategoryCacheSize: config.CategoryCacheSize,
		CategoryCacheTTL:  config.CategoryCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", path)
	return repo, nil
}

// LedgerPath resolves name against dir. Absolute names must already lie
// inside dir; relative names may not climb out of it.
func LedgerPath(dir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || dir == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidLedgerPath)
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve ledger dir: %w", err)
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrInvalidLedgerPath, name, dir)
	}

	ext := strings.ToLower(filepath.Ext(path))
	valid := false
	for _, e := range ledgerExtensions {
		if ext == e {
			valid = true
			break
		}
	}
	if !valid {
		return "", fmt.Errorf("%w: %s must end in one of %v", ErrInvalidLedgerPath, name, ledgerExtensions)
	}
	return path, nil
}
