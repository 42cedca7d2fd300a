package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-review/internal/ats"
	"resume-review/internal/llm"
	openai "resume-review/internal/llm/openai"
	"resume-review/internal/notify"
	"resume-review/internal/queue"
	"resume-review/internal/review"
	"resume-review/internal/reviews"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/server"
	"resume-review/internal/shared/storage/db"
	"resume-review/internal/shared/storage/object"
	localstore "resume-review/internal/shared/storage/object/local"
	s3store "resume-review/internal/shared/storage/object/s3"
	"resume-review/internal/shared/telemetry"
	"resume-review/internal/uploads"
	"resume-review/internal/versions"
)

const (
	notifyBuffer  = 256
	notifyTimeout = 5 * time.Second
)

var openDatabase = buildDB

// App holds shared dependencies for the API, worker and CLI entry points.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Queue    queue.Client
	Analyzer *llm.Analyzer
	Catalog  *ats.Catalog
	Versions *versions.Service
	Reviews  *reviews.Service
	Uploads  *uploads.Service

	closers []func()
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		VersionsHandler: versions.NewHandler(app.Versions),
		ReviewsHandler:  reviews.NewHandler(app.Reviews),
		ATSHandler:      ats.NewHandler(app.Catalog),
		UploadsHandler:  uploads.NewHandler(app.Uploads),
		Health:          app.health,
	})

	return app, nil
}

// Close flushes pending notifications and releases the database pool.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) health() map[string]any {
	out := map[string]any{
		"analyzer": a.Analyzer.BreakerState(),
		"storage":  "memory",
	}
	if a.DB != nil {
		out["storage"] = "postgres"
	}
	return out
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildCompleter(cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm.placeholder", map[string]any{"reason": "OPENAI_API_KEY empty"})
			return llm.PlaceholderClient{}, nil
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case "", "none", "placeholder":
		return llm.PlaceholderClient{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func buildCatalog(cfg config.Config) (*ats.Catalog, error) {
	if strings.TrimSpace(cfg.ATSCatalogFile) == "" {
		return ats.DefaultCatalog(cfg.ATSFallbackCount), nil
	}
	return ats.LoadCatalogFile(cfg.ATSCatalogFile, cfg.ATSFallbackCount)
}

func buildTemplates(cfg config.Config) (review.Templates, error) {
	if strings.TrimSpace(cfg.StageTemplatesFile) == "" {
		return review.DefaultTemplates(), nil
	}
	return review.LoadTemplatesFile(cfg.StageTemplatesFile)
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	if app.DB != nil {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			return err
		}
		sqlDB := app.DB
		app.closers = append(app.closers, func() { _ = sqlDB.Close() })
	}

	var (
		versionRepo versions.Repo
		sessionRepo reviews.Repo
	)
	if app.DB != nil {
		versionRepo = &versions.PGRepo{DB: app.DB}
		sessionRepo = &reviews.PGRepo{DB: app.DB}
	} else {
		versionRepo = versions.NewMemoryRepo()
		sessionRepo = reviews.NewMemoryRepo()
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		return err
	}
	app.Analyzer = llm.NewAnalyzer(completer, llm.Options{
		CallTimeout: cfg.LLMTimeout,
		RatePerSec:  cfg.AnalyzerRatePerSec,
		Burst:       cfg.AnalyzerBurst,
		MaxRetries:  cfg.AnalyzerMaxRetries,
		Breaker: llm.BreakerSettings{
			Enabled:          cfg.Breaker.Enabled,
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			MinRequests:      cfg.Breaker.MinRequests,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		},
	})

	app.Catalog, err = buildCatalog(cfg)
	if err != nil {
		return err
	}
	templates, err := buildTemplates(cfg)
	if err != nil {
		return err
	}
	engine, err := review.NewEngine(app.Analyzer,
		review.WithTemplates(templates),
		review.WithSystemMatcher(app.Catalog),
	)
	if err != nil {
		return err
	}

	sinks := notify.Multi{notify.LogSink{}}
	if cfg.NotifyQueueURL != "" {
		publisher, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.NotifyQueueURL)
		if err != nil {
			return fmt.Errorf("notify queue: %w", err)
		}
		sinks = append(sinks, notify.QueueSink{Publisher: publisher})
	}
	async := notify.NewAsync(sinks, notifyBuffer, notifyTimeout)
	app.closers = append(app.closers, async.Close)

	if cfg.ReviewQueueURL != "" {
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.ReviewQueueURL)
		if err != nil {
			return fmt.Errorf("review queue: %w", err)
		}
		app.Queue = client
	}

	app.Versions = &versions.Service{Repo: versionRepo}
	app.Reviews = &reviews.Service{
		Engine:    engine,
		Versions:  app.Versions,
		Repo:      sessionRepo,
		Sink:      async,
		Queue:     app.Queue,
		Snapshots: app.Store,
	}
	app.Uploads = &uploads.Service{Store: app.Store, Versions: app.Versions}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"storage":      app.health()["storage"],
		"object_store": cfg.ObjectStoreType,
		"llm_provider": cfg.LLMProvider,
		"review_queue": app.Queue != nil,
	})
	return nil
}
