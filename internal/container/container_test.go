package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/garyjia/temple-membership/internal/application/workflow"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/domain/event"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "membership.db")
	cfg.Workflow.HandlerTimeout = time.Second
	cfg.Workflow.Location = time.UTC
	return cfg
}

func startContainer(t *testing.T, cfg *Config) *Container {
	t.Helper()
	c, err := NewContainer(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Lark.Enabled = true
	_, err = NewContainer(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lark.app_id")

	cfg = DefaultConfig()
	cfg.Workflow.EntryFeeCents = 0
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_StartWiresComponents(t *testing.T) {
	c := startContainer(t, testConfig(t))
	defer c.Close()

	assert.True(t, c.Ready())
	assert.NoError(t, c.Health(context.Background()))

	report := c.HealthReport(context.Background())
	assert.True(t, report.Overall)
	for _, name := range []string{"database", "repositories", "dispatcher", "workflow", "services"} {
		assert.True(t, report.Components[name].Healthy, name)
	}

	assert.NotNil(t, c.DB())
	assert.NotNil(t, c.Repositories())
	assert.NotNil(t, c.NotificationSink())
	assert.NotNil(t, c.Metrics())
	assert.NotNil(t, c.Dispatcher())
	assert.NotNil(t, c.WorkflowEngine())
	assert.NotNil(t, c.Services())

	// notification service subscribes to the outcome events
	assert.NotEmpty(t, c.Dispatcher().ListHandlers(event.TypeApplicationApproved))
}

func TestContainer_DraftThroughEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workflow.EntryFeeCents = 6000
	c := startContainer(t, cfg)
	defer c.Close()

	ctx := workflow.WithActor(context.Background(), "secretary")

	app, err := c.Services().Application.CreateDraft(ctx, entity.Applicant{FullName: "Tan Ah Kow"})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatePendingSubmission.String(), app.Status)
	assert.Equal(t, int64(6000), app.EntryFee.AmountCents)

	permitted, err := c.WorkflowEngine().PermittedActions(ctx, app.ID)
	require.NoError(t, err)
	assert.Contains(t, permitted, domainwf.TriggerSubmit)

	// an empty draft cannot be submitted
	_, err = c.WorkflowEngine().Execute(ctx, app.ID, workflow.SubmitAction{})
	require.Error(t, err)
	assert.Equal(t, domainwf.CodeIncompleteSubmission, domainwf.CodeOf(err))

	history, err := c.Services().Application.GetHistory(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "secretary", history[0].ActorID)

	counts, err := c.Services().Application.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domainwf.StatePendingSubmission.String()])
}

func TestContainer_MigrationsDirOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.MigrationsDir = filepath.Join("..", "..", "migrations")

	c := startContainer(t, cfg)
	defer c.Close()

	assert.NoError(t, c.Health(context.Background()))
}

func TestContainer_MissingMigrationsDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.MigrationsDir = filepath.Join(t.TempDir(), "missing")

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize database")
	assert.False(t, c.Ready())
}

func TestContainer_Lifecycle(t *testing.T) {
	c := startContainer(t, testConfig(t))

	assert.Error(t, c.Start(context.Background()), "second start")

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Health(context.Background()))
	assert.False(t, c.HealthReport(context.Background()).Overall)

	assert.Error(t, c.Close(), "second close")
	assert.Error(t, c.Start(context.Background()), "start after close")
}

func TestProvideNotificationSink(t *testing.T) {
	logger := zap.NewNop()

	bundle, err := ProvideNotificationSink(&LarkConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, bundle.LarkChat)
	assert.Nil(t, bundle.SDKClient)

	bundle, err = ProvideNotificationSink(&LarkConfig{
		Enabled:   true,
		AppID:     "cli_test",
		AppSecret: "secret",
		ChatID:    "oc_committee",
		Timeout:   time.Second,
	}, logger)
	require.NoError(t, err)
	assert.True(t, bundle.LarkChat)
	require.NotNil(t, bundle.SDKClient)
	assert.Equal(t, "oc_committee", bundle.SDKClient.GetChatID())

	_, err = ProvideNotificationSink(nil, logger)
	assert.Error(t, err)
}

func TestProviders_RequireDependencies(t *testing.T) {
	logger := zap.NewNop()

	_, err := ProvideDatabase(context.Background(), nil, logger)
	assert.Error(t, err)
	_, err = ProvideRepositories(nil, logger)
	assert.Error(t, err)
	_, err = ProvideDispatcher(nil, logger)
	assert.Error(t, err)
	_, err = ProvideServices(nil)
	assert.Error(t, err)
	_, err = ProvideServices(&ServiceDeps{Logger: logger})
	assert.Error(t, err)
	_, err = ProvideWorkflowEngine(&WorkflowDeps{Logger: logger})
	assert.Error(t, err)
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("application_id", int64(7), 42, "skipped", "error", errors.New("boom"), "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "application_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}
