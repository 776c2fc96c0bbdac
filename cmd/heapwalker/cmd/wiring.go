package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/heapwalker/internal/repository"
	"github.com/heapwalker/internal/service"
	"github.com/heapwalker/internal/storage"
)

// walker bundles a WalkerService with the resources it holds open.
type walker struct {
	svc   *service.WalkerService
	store storage.Storage
	repos *repository.Repositories
}

func (w *walker) Close() {
	w.svc.Sessions().Stop()
	if w.repos != nil {
		if err := w.repos.Close(); err != nil {
			logger.Warn("Failed to close catalog: %v", err)
		}
	}
}

// openWalker builds a WalkerService from the loaded configuration. The
// catalog database is opened only when withCatalog is set.
func openWalker(ctx context.Context, withCatalog bool) (*walker, error) {
	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return newWalker(ctx, store, withCatalog)
}

func newWalker(ctx context.Context, store storage.Storage, withCatalog bool) (*walker, error) {
	w := &walker{store: store}
	var catalog repository.SnapshotRepository
	if withCatalog {
		repos, err := repository.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		w.repos = repos
		catalog = repos.Snapshot
	}
	w.svc = service.New(cfg.Viewer, store, catalog, logger)
	return w, nil
}

// openForRef opens a walker able to resolve ref. A path to an existing file
// is served from its directory without touching the catalog; anything else
// is a catalog UUID or a key in the configured storage.
func openForRef(ctx context.Context, ref string) (*walker, string, error) {
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return nil, "", err
		}
		store, err := storage.NewLocalStorage(filepath.Dir(abs))
		if err != nil {
			return nil, "", err
		}
		w, err := newWalker(ctx, store, false)
		if err != nil {
			return nil, "", err
		}
		return w, filepath.Base(abs), nil
	}
	w, err := openWalker(ctx, true)
	if err != nil {
		return nil, "", err
	}
	return w, ref, nil
}
