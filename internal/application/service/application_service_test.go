package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/application/workflow"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/domain/event"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
)

func newTestApplicationService(appRepo *mockAppRepo, historyRepo *mockHistoryRepo, d *mockDispatcher) ApplicationService {
	return NewApplicationService(appRepo, historyRepo, &mockTxManager{}, &mockExporter{}, d, 0, &mockLogger{})
}

func TestApplicationService_CreateDraft(t *testing.T) {
	appRepo := &mockAppRepo{}
	historyRepo := &mockHistoryRepo{}
	d := &mockDispatcher{}
	svc := newTestApplicationService(appRepo, historyRepo, d)

	ctx := workflow.WithActor(context.Background(), "clerk-1")
	app, err := svc.CreateDraft(ctx, entity.Applicant{
		FullName: "  Lim Wei Ming ",
		ICNumber: "900101-14-5678",
		Email:    "lim@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), app.ID)
	assert.Equal(t, domainwf.StatePendingSubmission.String(), app.Status)
	assert.Equal(t, "Lim Wei Ming", app.Applicant.FullName)
	assert.Equal(t, entity.DefaultEntryFeeCents, app.EntryFee.AmountCents)
	assert.False(t, app.EntryFee.Paid)

	require.Len(t, historyRepo.histories, 1)
	h := historyRepo.histories[0]
	assert.Equal(t, "CREATE", h.ActionType)
	assert.Equal(t, "clerk-1", h.ActorID)
	assert.Equal(t, app.Status, h.NewStatus)
	assert.Empty(t, h.PreviousStatus)
	assert.Contains(t, h.ActionData, `"full_name":"Lim Wei Ming"`)

	require.Len(t, d.events, 1)
	assert.Equal(t, event.TypeApplicationCreated, d.events[0].Type)
	assert.Equal(t, "Lim Wei Ming", d.events[0].Payload.String("applicant_name"))
}

func TestApplicationService_CreateDraft_CustomEntryFee(t *testing.T) {
	svc := NewApplicationService(&mockAppRepo{}, &mockHistoryRepo{}, &mockTxManager{}, nil, nil, 8800, &mockLogger{})

	app, err := svc.CreateDraft(context.Background(), entity.Applicant{FullName: "Tan Mei Ling"})
	require.NoError(t, err)
	assert.Equal(t, int64(8800), app.EntryFee.AmountCents)
}

func TestApplicationService_CreateDraft_Validation(t *testing.T) {
	tests := []struct {
		name      string
		applicant entity.Applicant
		code      domainwf.Code
		field     string
	}{
		{"missing name", entity.Applicant{FullName: "   "}, domainwf.CodeMissingRequiredField, "applicant.full_name"},
		{"bad ic", entity.Applicant{FullName: "A", ICNumber: "12345"}, domainwf.CodeInvalidFieldValue, "applicant.ic_number"},
		{"bad email", entity.Applicant{FullName: "A", Email: "not-an-email"}, domainwf.CodeInvalidFieldValue, "applicant.email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			historyRepo := &mockHistoryRepo{}
			svc := newTestApplicationService(&mockAppRepo{}, historyRepo, &mockDispatcher{})

			_, err := svc.CreateDraft(context.Background(), tt.applicant)
			require.Error(t, err)

			wfErr, ok := domainwf.AsError(err)
			require.True(t, ok)
			assert.Equal(t, domainwf.KindValidation, wfErr.Kind)
			assert.Equal(t, tt.code, wfErr.Code)
			assert.Equal(t, tt.field, wfErr.Field)
			assert.Empty(t, historyRepo.histories)
		})
	}
}

func TestApplicationService_CreateDraft_TransactionFailure(t *testing.T) {
	d := &mockDispatcher{}
	appRepo := &mockAppRepo{
		createFunc: func(ctx context.Context, app *entity.MemberApplication) error {
			return errors.New("disk full")
		},
	}
	svc := newTestApplicationService(appRepo, &mockHistoryRepo{}, d)

	_, err := svc.CreateDraft(context.Background(), entity.Applicant{FullName: "Lee Chong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, domainwf.CodeDependencyUnavailable, domainwf.CodeOf(err))
	assert.Empty(t, d.events, "no event on failure")
}

func TestApplicationService_GetApplication(t *testing.T) {
	appRepo := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.MemberApplication, error) {
			if id == 404 {
				return nil, nil
			}
			if id == 500 {
				return nil, errors.New("database locked")
			}
			return &entity.MemberApplication{ID: id, Status: "SUBMITTED"}, nil
		},
	}
	svc := newTestApplicationService(appRepo, &mockHistoryRepo{}, &mockDispatcher{})

	app, err := svc.GetApplication(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), app.ID)

	_, err = svc.GetApplication(context.Background(), 404)
	assert.Equal(t, domainwf.CodeNotFound, domainwf.CodeOf(err))

	_, err = svc.GetApplication(context.Background(), 500)
	require.Error(t, err)
	wfErr, ok := domainwf.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domainwf.KindDependency, wfErr.Kind)
	assert.Contains(t, err.Error(), "database locked")
}

func TestApplicationService_ListApplications_Limits(t *testing.T) {
	tests := []struct {
		name       string
		filter     port.ApplicationFilter
		wantLimit  int
		wantOffset int
	}{
		{"defaults", port.ApplicationFilter{}, 50, 0},
		{"capped", port.ApplicationFilter{Limit: 9000}, 500, 0},
		{"negative offset", port.ApplicationFilter{Limit: 10, Offset: -3}, 10, 0},
		{"status kept", port.ApplicationFilter{Status: "APPROVED", Limit: 5, Offset: 10}, 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appRepo := &mockAppRepo{}
			svc := newTestApplicationService(appRepo, &mockHistoryRepo{}, &mockDispatcher{})

			_, err := svc.ListApplications(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, appRepo.listCalls, 1)
			assert.Equal(t, tt.wantLimit, appRepo.listCalls[0].Limit)
			assert.Equal(t, tt.wantOffset, appRepo.listCalls[0].Offset)
			assert.Equal(t, tt.filter.Status, appRepo.listCalls[0].Status)
		})
	}
}

func TestApplicationService_ListApplications_UnknownStatus(t *testing.T) {
	appRepo := &mockAppRepo{}
	svc := newTestApplicationService(appRepo, &mockHistoryRepo{}, &mockDispatcher{})

	_, err := svc.ListApplications(context.Background(), port.ApplicationFilter{Status: "ARCHIVED"})
	assert.Equal(t, domainwf.CodeInvalidFieldValue, domainwf.CodeOf(err))
	assert.Empty(t, appRepo.listCalls)
}

func TestApplicationService_GetHistory(t *testing.T) {
	historyRepo := &mockHistoryRepo{histories: []*entity.ApplicationHistory{
		{ApplicationID: 1, ActionType: "CREATE"},
		{ApplicationID: 1, ActionType: "SUBMIT"},
	}}
	appRepo := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.MemberApplication, error) {
			if id != 1 {
				return nil, nil
			}
			return &entity.MemberApplication{ID: 1}, nil
		},
	}
	svc := newTestApplicationService(appRepo, historyRepo, &mockDispatcher{})

	history, err := svc.GetHistory(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = svc.GetHistory(context.Background(), 2)
	assert.Equal(t, domainwf.CodeNotFound, domainwf.CodeOf(err))
}

func TestApplicationService_CountByStatus(t *testing.T) {
	appRepo := &mockAppRepo{
		countByStatusFunc: func(ctx context.Context) (map[string]int, error) {
			return map[string]int{"SUBMITTED": 3, "APPROVED": 1}, nil
		},
	}
	svc := newTestApplicationService(appRepo, &mockHistoryRepo{}, &mockDispatcher{})

	counts, err := svc.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Len(t, counts, len(domainwf.AllStates()))
	assert.Equal(t, 3, counts["SUBMITTED"])
	assert.Equal(t, 1, counts["APPROVED"])
	assert.Equal(t, 0, counts["REJECTED"])
}

func TestApplicationService_CountByStatus_NilMap(t *testing.T) {
	appRepo := &mockAppRepo{
		countByStatusFunc: func(ctx context.Context) (map[string]int, error) {
			return nil, nil
		},
	}
	svc := newTestApplicationService(appRepo, &mockHistoryRepo{}, &mockDispatcher{})

	counts, err := svc.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, counts["PENDING_SUBMISSION"])
}

func TestApplicationService_ExportRegister_Pages(t *testing.T) {
	appRepo := &mockAppRepo{
		listFunc: func(ctx context.Context, filter port.ApplicationFilter) ([]*entity.MemberApplication, error) {
			size := 500
			if filter.Offset > 0 {
				size = 3
			}
			page := make([]*entity.MemberApplication, size)
			for i := range page {
				page[i] = &entity.MemberApplication{ID: int64(filter.Offset + i + 1)}
			}
			return page, nil
		},
	}
	exporter := &mockExporter{}
	svc := NewApplicationService(appRepo, &mockHistoryRepo{}, &mockTxManager{}, exporter, nil, 0, &mockLogger{})

	var buf bytes.Buffer
	err := svc.ExportRegister(context.Background(), &buf, "")
	require.NoError(t, err)

	assert.Len(t, appRepo.listCalls, 2)
	assert.Equal(t, 500, appRepo.listCalls[1].Offset)
	assert.Len(t, exporter.exported, 503)
	assert.Equal(t, "xlsx", buf.String())
}

func TestApplicationService_ExportRegister_Errors(t *testing.T) {
	svc := NewApplicationService(&mockAppRepo{}, &mockHistoryRepo{}, &mockTxManager{}, nil, nil, 0, &mockLogger{})
	err := svc.ExportRegister(context.Background(), &bytes.Buffer{}, "")
	assert.Error(t, err, "exporter not configured")

	exporter := &mockExporter{err: errors.New("sheet limit")}
	svc = NewApplicationService(&mockAppRepo{}, &mockHistoryRepo{}, &mockTxManager{}, exporter, nil, 0, &mockLogger{})

	err = svc.ExportRegister(context.Background(), &bytes.Buffer{}, "NOPE")
	assert.Equal(t, domainwf.CodeInvalidFieldValue, domainwf.CodeOf(err))

	err = svc.ExportRegister(context.Background(), &bytes.Buffer{}, "APPROVED")
	assert.ErrorIs(t, err, exporter.err)
}
