package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/runger/casenote/internal/config"
	clog "github.com/runger/casenote/internal/log"
	"github.com/runger/casenote/internal/provider"
	"github.com/runger/casenote/internal/storage"
)

// bundledCorpus names the embedded corpus in logs and output.
const bundledCorpus = "bundled"

// backend is the suggestion provider selected by the configuration.
type backend struct {
	provider *provider.LookupProvider
	source   string // corpus file, database path or bundledCorpus
	closeFn  func() error
}

// Close releases the corpus store, if any.
func (b *backend) Close() error {
	if b == nil || b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// lookupOptions maps the enhance settings onto provider options.
func lookupOptions(cfg *config.Config) []provider.LookupOption {
	return []provider.LookupOption{
		provider.WithDelay(
			time.Duration(cfg.Enhance.MinDelayMs)*time.Millisecond,
			time.Duration(cfg.Enhance.MaxDelayMs)*time.Millisecond,
		),
		provider.WithErrorRate(cfg.Enhance.ErrorRate),
	}
}

// openBackend builds the provider for cfg. extra options are applied after
// the configured ones. An empty SQLite corpus is seeded from the configured
// corpus file or the bundled one.
func openBackend(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, extra ...provider.LookupOption) (*backend, error) {
	opts := append(lookupOptions(cfg), extra...)

	switch cfg.Enhance.Provider {
	case config.ProviderSQLite:
		dbPath := cfg.DatabasePath(paths)
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			clog.LogSQLiteError(logger, "open", err)
			return nil, fmt.Errorf("failed to open corpus database: %w", err)
		}

		n, err := store.CountInputs(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		if n == 0 {
			corpus, source, err := loadCorpus(cfg)
			if err != nil {
				store.Close()
				return nil, err
			}
			imported, err := store.ImportCorpus(ctx, corpus)
			if err != nil {
				clog.LogSQLiteError(logger, "seed", err)
				store.Close()
				return nil, err
			}
			clog.LogCorpusImported(logger, source, dbPath, imported)
		}

		return &backend{
			provider: provider.NewLookupProvider(store, opts...),
			source:   dbPath,
			closeFn:  store.Close,
		}, nil

	case config.ProviderMemory, "":
		corpus, source, err := loadCorpus(cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			provider: provider.NewLookupProvider(corpus, opts...),
			source:   source,
		}, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Enhance.Provider)
	}
}

// loadCorpus reads the configured corpus file, or the bundled corpus when
// none is set.
func loadCorpus(cfg *config.Config) (*provider.Corpus, string, error) {
	if path := cfg.Enhance.CorpusPath; path != "" {
		corpus, err := provider.LoadCorpusFile(path)
		if err != nil {
			return nil, "", err
		}
		return corpus, path, nil
	}
	corpus, err := provider.DefaultCorpus()
	if err != nil {
		return nil, "", err
	}
	return corpus, bundledCorpus, nil
}
