package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/temple-membership/internal/application/dispatcher"
	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/application/service"
	"github.com/garyjia/temple-membership/internal/application/workflow"
	"github.com/garyjia/temple-membership/internal/infrastructure/metrics"
	"github.com/garyjia/temple-membership/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	notifications *NotificationBundle
	metrics       *metrics.Metrics

	// Application
	dispatcher dispatcher.Dispatcher
	workflow   workflow.WorkflowEngine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Application port.ApplicationRepository
	History     port.HistoryRepository
	Member      port.MemberRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Application  service.ApplicationService
	Member       service.MemberService
	Notification service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

var errNotInitialized = errors.New("not initialized")

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// stages lists startup steps in dependency order. Teardown runs in reverse.
func (c *Container) stages() []stage {
	return []stage{
		{"database", c.initDatabase},
		{"notifications", c.initNotifications},
		{"dispatcher", c.initDispatcher},
		{"services", c.initServices},
		{"workflow", c.initWorkflow},
	}
}

// Start builds every component. On failure whatever was built is released
// and the container stays unusable.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed.Load():
		return fmt.Errorf("container has been closed")
	case c.ready.Load():
		return fmt.Errorf("container already started")
	}

	for _, st := range c.stages() {
		if err := st.run(ctx); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", st.name, err)
		}
		c.logger.Debug("Container stage ready", zap.String("stage", st.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started",
		zap.String("database", c.config.Database.Path),
		zap.Bool("lark_chat", c.notifications.LarkChat),
		zap.String("member_id_prefix", c.config.Workflow.MemberIDPrefix))
	return nil
}

// Close drains background notifications, then closes the database.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("container already closed")
	}
	c.ready.Store(false)

	if err := c.teardown(); err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed")
	return nil
}

func (c *Container) teardown() error {
	var errs []error

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.workflow = nil
	c.services = nil
	c.dispatcher = nil
	c.notifications = nil
	c.repositories = nil
	c.db = nil
	c.sqlDB = nil

	return errors.Join(errs...)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health implements the HTTP health check by pinging the database.
func (c *Container) Health(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready.Load() || c.sqlDB == nil {
		return fmt.Errorf("container not ready")
	}
	if err := c.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// HealthReport describes each component. Any unhealthy one fails Overall.
func (c *Container) HealthReport(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{Overall: true, Components: make(map[string]ComponentHealth)}
	set := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}
	built := func(ok bool) error {
		if ok {
			return nil
		}
		return errNotInitialized
	}

	if c.sqlDB == nil {
		set("database", errNotInitialized)
	} else if err := c.sqlDB.PingContext(ctx); err != nil {
		set("database", fmt.Errorf("ping failed: %w", err))
	} else {
		set("database", nil)
	}

	set("repositories", built(c.repositories != nil))
	set("dispatcher", built(c.dispatcher != nil))
	set("workflow", built(c.workflow != nil))
	set("services", built(c.services != nil))

	return status
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.sqlDB = bundle.SqlDB
	c.db = bundle.TransactionMgr

	c.repositories, err = ProvideRepositories(c.sqlDB, c.logger)
	return err
}

func (c *Container) initNotifications(ctx context.Context) error {
	bundle, err := ProvideNotificationSink(&c.config.Lark, c.logger)
	if err != nil {
		return err
	}
	c.notifications = bundle
	c.metrics = metrics.New()
	return nil
}

func (c *Container) initDispatcher(ctx context.Context) error {
	disp, err := ProvideDispatcher(&c.config.Workflow, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Sink:       c.notifications.Sink,
		Workflow:   &c.config.Workflow,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// initWorkflow wires the engine. The member service is its directory.
func (c *Container) initWorkflow(ctx context.Context) error {
	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Directory:  c.services.Member,
		Dispatcher: c.dispatcher,
		Metrics:    c.metrics,
		Workflow:   &c.config.Workflow,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workflow = engine
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// NotificationSink returns the sink notifications are delivered to.
func (c *Container) NotificationSink() port.NotificationSink {
	if c.notifications == nil {
		return nil
	}
	return c.notifications.Sink
}

// Metrics returns the Prometheus metrics.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.WorkflowEngine {
	return c.workflow
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
