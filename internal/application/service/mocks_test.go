package service

import (
	"context"
	"io"
	"sync"

	"github.com/garyjia/temple-membership/internal/application/dispatcher"
	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/domain/event"
)

type mockAppRepo struct {
	createFunc        func(ctx context.Context, app *entity.MemberApplication) error
	getByIDFunc       func(ctx context.Context, id int64) (*entity.MemberApplication, error)
	listFunc          func(ctx context.Context, filter port.ApplicationFilter) ([]*entity.MemberApplication, error)
	countByStatusFunc func(ctx context.Context) (map[string]int, error)
	listCalls         []port.ApplicationFilter
}

func (m *mockAppRepo) Create(ctx context.Context, app *entity.MemberApplication) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, app)
	}
	app.ID = 1
	app.Version = 1
	return nil
}

func (m *mockAppRepo) GetByID(ctx context.Context, id int64) (*entity.MemberApplication, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.MemberApplication{ID: id, Status: "SUBMITTED"}, nil
}

func (m *mockAppRepo) Save(ctx context.Context, app *entity.MemberApplication, expectedVersion int64) error {
	return nil
}

func (m *mockAppRepo) List(ctx context.Context, filter port.ApplicationFilter) ([]*entity.MemberApplication, error) {
	m.listCalls = append(m.listCalls, filter)
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.MemberApplication{}, nil
}

func (m *mockAppRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	if m.countByStatusFunc != nil {
		return m.countByStatusFunc(ctx)
	}
	return map[string]int{}, nil
}

type mockHistoryRepo struct {
	createFunc func(ctx context.Context, history *entity.ApplicationHistory) error
	histories  []*entity.ApplicationHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.ApplicationHistory) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, history)
	}
	m.histories = append(m.histories, history)
	return nil
}

func (m *mockHistoryRepo) GetByApplicationID(ctx context.Context, applicationID int64) ([]*entity.ApplicationHistory, error) {
	return m.histories, nil
}

type mockMemberRepo struct {
	getFunc    func(ctx context.Context, key string) (*entity.Member, error)
	searchFunc func(ctx context.Context, query string, limit int) ([]*entity.Member, error)
	keys       []string
}

func (m *mockMemberRepo) Create(ctx context.Context, member *entity.Member) error {
	return nil
}

func (m *mockMemberRepo) GetByMemberIDOrIC(ctx context.Context, key string) (*entity.Member, error) {
	m.keys = append(m.keys, key)
	if m.getFunc != nil {
		return m.getFunc(ctx, key)
	}
	return nil, nil
}

func (m *mockMemberRepo) NextPermanentMemberID(ctx context.Context, prefix string, year int) (string, error) {
	return entity.FormatPermanentMemberID(prefix, year, 1), nil
}

func (m *mockMemberRepo) Search(ctx context.Context, query string, limit int) ([]*entity.Member, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, limit)
	}
	return nil, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockExporter struct {
	exported []*entity.MemberApplication
	err      error
}

func (m *mockExporter) WriteRegister(w io.Writer, apps []*entity.MemberApplication) error {
	if m.err != nil {
		return m.err
	}
	m.exported = apps
	_, err := w.Write([]byte("xlsx"))
	return err
}

type mockSink struct {
	mu            sync.Mutex
	notifications []port.Notification
	err           error
}

func (m *mockSink) Notify(ctx context.Context, notification port.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.notifications = append(m.notifications, notification)
	return nil
}

type mockDispatcher struct {
	dispatcher.Dispatcher
	events     []*event.Event
	subscribed map[event.Type]string
}

func (m *mockDispatcher) Subscribe(name string, handler dispatcher.Handler, eventTypes ...event.Type) {
	if m.subscribed == nil {
		m.subscribed = make(map[event.Type]string)
	}
	for _, t := range eventTypes {
		m.subscribed[t] = name
	}
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, events ...*event.Event) {
	m.events = append(m.events, events...)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
