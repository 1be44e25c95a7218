package app

import (
	"context"
	"fmt"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/repository"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/mq"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/orchestrator"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/pipeline"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/pipeline/blocks"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/retry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/filestorage"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/fileuploader"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/notification"
	"github.com/FabienDubin/AppsByMci-V2-sub002/pkg/logger"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

const uploadWorkers = 10

type App struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	config     *config.Config
	db         *bun.DB
	mq         mq.MQ
	storage    filestorage.Storage
	uploader   *fileuploader.Uploader
	notifier   notification.Notifier
	notifyWork *notification.Worker

	Logger *zap.Logger

	GenerationRepository repository.IGenerationRepository
	AnimationRepository  repository.IAnimationRepository
	StatRepository       repository.IStatRepository

	Executor     *pipeline.Executor
	Orchestrator *orchestrator.Orchestrator
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithMQ() OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewInMemoryMQ(64)
		if err != nil {
			return err
		}
		app.mq = queue
		return nil
	}
}

func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		dbConn, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}
		app.db = dbConn

		// Ensure tables exist
		err = app.db.RunInTx(app.ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			tables := []interface{}{
				(*models.Animation)(nil),
				(*models.Generation)(nil),
				(*models.AnimationStat)(nil),
			}

			for _, table := range tables {
				if _, err := tx.NewCreateTable().
					Model(table).
					IfNotExists().
					Exec(ctx); err != nil {
					return fmt.Errorf("failed to create table: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		app.GenerationRepository = repository.NewGenerationRepository(app.db)
		app.AnimationRepository = repository.NewAnimationRepository(app.db)
		app.StatRepository = repository.NewStatRepository(app.db)

		return nil
	}
}

func WithFileStorage() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewStorage(app.config)
		if err != nil {
			return err
		}
		app.storage = storage
		app.uploader = fileuploader.NewUploader(storage, uploadWorkers)
		return nil
	}
}

func WithEmailNotifier() OptionFunc {
	return func(app *App) error {
		notifier, err := notification.NewEmailNotifier(app.config.SMTP)
		if err != nil {
			return err
		}
		app.notifier = notifier
		return nil
	}
}

// WithPipelineEngine wires the executor and orchestrator. It must come after
// the db, storage and mq options.
func WithPipelineEngine() OptionFunc {
	return func(app *App) error {
		if app.GenerationRepository == nil || app.uploader == nil {
			return fmt.Errorf("pipeline engine requires db and storage to be initialized")
		}

		deps := &blocks.Deps{
			Config: app.config,
			Retry:  retry.DefaultOptions(),
			Logger: app.Logger,
		}
		app.Executor = pipeline.NewExecutor(deps, app.Logger)
		app.Orchestrator = orchestrator.New(
			app.GenerationRepository,
			app.AnimationRepository,
			app.StatRepository,
			app.Executor,
			app.uploader,
			app.mq,
			app.Logger,
		)

		return nil
	}
}

func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	log, err := logger.InitLogger(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     cfg,
		Logger:     log,
		cancelFunc: cancel,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			// Continue even if some options fail
			app.Logger.Error("failed to apply option", zap.Error(err))
		}
	}

	return app, nil
}

// StartNotificationWorker begins consuming notification events. A no-op when
// the notifier or queue is missing (e.g. SMTP not configured in dev).
func (app *App) StartNotificationWorker() {
	if app.notifier == nil || app.mq == nil || app.GenerationRepository == nil {
		app.Logger.Warn("notification worker not started; notifier, queue or db missing")
		return
	}

	app.notifyWork = notification.NewWorker(
		app.mq,
		app.notifier,
		app.GenerationRepository,
		app.AnimationRepository,
		uploadWorkers,
		app.Logger,
	)

	go func() {
		if err := app.notifyWork.Run(app.ctx); err != nil {
			app.Logger.Error("notification worker stopped", zap.Error(err))
		}
	}()
}

func (app *App) Close() {
	app.cancelFunc()

	if app.notifyWork != nil {
		app.notifyWork.Stop()
	}
	if app.uploader != nil {
		app.uploader.Stop()
	}
	if app.mq != nil {
		app.mq.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.mq
}

func (app *App) DB() *bun.DB {
	return app.db
}

func (app *App) Storage() filestorage.Storage {
	return app.storage
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.uploader
}
