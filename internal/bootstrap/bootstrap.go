package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kirillkom/khmer-text-classifier/internal/config"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
	"github.com/kirillkom/khmer-text-classifier/internal/core/usecase"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/model/linear"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/queue/nats"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/tabular"
	"github.com/kirillkom/khmer-text-classifier/internal/observability/metrics"
)

// Store is a document repository that can also install its own schema.
type Store interface {
	ports.DocumentRepository
	EnsureSchema(ctx context.Context) error
}

type App struct {
	Config config.Config

	Model      *linear.Pipeline
	Repo       Store
	ClassifyUC *usecase.ClassifyUseCase
	BatchUC    *usecase.BatchUseCase
	HistoryUC  *usecase.HistoryUseCase
	Metrics    *metrics.HTTPServerMetrics

	closeFns []func()
}

// New loads the model, waits for the store and wires the use cases. Any
// error is fatal for the caller.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	model, err := LoadModel(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Model: model}

	repo, closeDB, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Repo = repo
	app.closeFns = append(app.closeFns, closeDB)

	events, err := app.newEventPublisher(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	var archive ports.ObjectStorage
	if cfg.UploadArchivePath != "" {
		storage, err := localfs.New(cfg.UploadArchivePath)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init upload archive: %w", err)
		}
		archive = storage
	}

	app.ClassifyUC = usecase.NewClassifyUseCase(
		model,
		repo,
		events,
		plaintext.NewExtractor(),
		pdf.NewExtractor(),
	)
	app.BatchUC = usecase.NewBatchUseCase(
		app.ClassifyUC,
		archive,
		tabular.NewXLSXReader(),
		tabular.NewCSVReader(),
	)
	app.HistoryUC = usecase.NewHistoryUseCase(repo, cfg.HistoryDefaultLimit, cfg.HistoryMaxLimit)

	if cfg.MetricsEnabled {
		app.Metrics = metrics.NewHTTPServerMetrics("api")
	}
	return app, nil
}

func LoadModel(cfg config.Config) (*linear.Pipeline, error) {
	model, err := linear.Load(cfg.ModelManifest)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	slog.Info("model_loaded", "manifest", cfg.ModelManifest, "version", model.Version())
	return model, nil
}

// OpenStore opens the configured driver, waits until it answers and
// installs the schema. The returned func closes the pool.
func OpenStore(ctx context.Context, cfg config.Config) (Store, func(), error) {
	var (
		db   *sql.DB
		repo Store
		err  error
	)
	switch cfg.StoreDriver {
	case "postgres", "":
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo = postgres.NewDocumentRepository(db)
	case "sqlite":
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err = sqlite.OpenDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo = sqlite.NewDocumentRepository(db)
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q: expected postgres or sqlite", cfg.StoreDriver)
	}
	closeDB := func() { _ = db.Close() }

	err = resilience.WaitReady(ctx, cfg.StoreDriver, cfg.DBConnectRetries, cfg.DBConnectBackoff, repo.Ping)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("wait for store: %w", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, closeDB, nil
}

func (a *App) newEventPublisher(cfg config.Config) (ports.EventPublisher, error) {
	if cfg.NATSURL == "" {
		return nats.Noop{}, nil
	}
	publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init event publisher: %w", err)
	}
	a.closeFns = append(a.closeFns, publisher.Close)
	return publisher, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
