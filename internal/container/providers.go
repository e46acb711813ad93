package container

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"github.com/garyjia/temple-membership/internal/application/dispatcher"
	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/application/service"
	"github.com/garyjia/temple-membership/internal/application/workflow"
	infraLark "github.com/garyjia/temple-membership/internal/infrastructure/external/lark"
	"github.com/garyjia/temple-membership/internal/infrastructure/metrics"
	"github.com/garyjia/temple-membership/internal/infrastructure/notification"
	"github.com/garyjia/temple-membership/internal/infrastructure/persistence/repository"
	"github.com/garyjia/temple-membership/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/temple-membership/internal/infrastructure/report"
	"github.com/garyjia/temple-membership/migrations"
	"github.com/garyjia/temple-membership/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// NotificationBundle holds the sink notifications are delivered to.
type NotificationBundle struct {
	Sink      port.NotificationSink
	LarkChat  bool
	SDKClient *infraLark.SDKClient
}

// ProvideDatabase opens the database and applies pending migrations.
// The embedded schema is used unless cfg.MigrationsDir points elsewhere.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	var schema fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		schema = os.DirFS(cfg.MigrationsDir)
	}

	if _, err := database.NewMigrator(db, logger.Named("migrator")).Up(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Application: repository.NewApplicationRepository(sqlDB, logger),
		History:     repository.NewHistoryRepository(sqlDB, logger),
		Member:      repository.NewMemberRepository(sqlDB, logger),
	}, nil
}

// ProvideNotificationSink creates the Lark chat messenger when enabled,
// otherwise a sink that writes notifications to the log.
func ProvideNotificationSink(cfg *LarkConfig, logger *zap.Logger) (*NotificationBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled {
		return &NotificationBundle{Sink: notification.NewLogSink(logger)}, nil
	}

	sdkClient := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		ChatID:    cfg.ChatID,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
	}, logger)

	return &NotificationBundle{
		Sink:      infraLark.NewMessenger(sdkClient, logger),
		LarkChat:  true,
		SDKClient: sdkClient,
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *WorkflowConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(&ZapLoggerAdapter{logger: logger.Named("dispatcher")}),
	}
	if cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}

	return dispatcher.NewDispatcher(opts...), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Sink       port.NotificationSink
	Workflow   *WorkflowConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes
// the notification service to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("notification sink is required")
	}
	if deps.Workflow == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := &ZapLoggerAdapter{logger: deps.Logger}

	exporter := report.NewRegisterExporter(deps.Workflow.Location, deps.Logger)

	notifications := service.NewNotificationService(deps.Sink, serviceLogger)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		Application: service.NewApplicationService(
			deps.Repos.Application,
			deps.Repos.History,
			deps.TxManager,
			exporter,
			deps.Dispatcher,
			deps.Workflow.EntryFeeCents,
			serviceLogger,
		),
		Member:       service.NewMemberService(deps.Repos.Member, serviceLogger),
		Notification: notifications,
	}, nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Directory  port.MemberDirectory
	Dispatcher dispatcher.Dispatcher
	Metrics    *metrics.Metrics
	Workflow   *WorkflowConfig
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the application workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("member directory is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Workflow == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(&ZapLoggerAdapter{logger: deps.Logger.Named("workflow")}),
		workflow.WithMemberIDPrefix(deps.Workflow.MemberIDPrefix),
	}
	if deps.Metrics != nil {
		opts = append(opts, workflow.WithMetrics(deps.Metrics))
	}

	return workflow.NewEngine(
		deps.Repos.Application,
		deps.Repos.History,
		deps.Repos.Member,
		deps.Directory,
		deps.TxManager,
		opts...,
	), nil
}
