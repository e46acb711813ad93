package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/temple-membership/internal/application/dispatcher"
	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/application/workflow"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/domain/event"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
	"github.com/garyjia/temple-membership/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
	exportLimit      = 10000
)

// ApplicationService handles application reads and draft creation.
// Every status change goes through the workflow engine.
type ApplicationService interface {
	CreateDraft(ctx context.Context, applicant entity.Applicant) (*entity.MemberApplication, error)
	GetApplication(ctx context.Context, id int64) (*entity.MemberApplication, error)
	ListApplications(ctx context.Context, filter port.ApplicationFilter) ([]*entity.MemberApplication, error)
	GetHistory(ctx context.Context, id int64) ([]*entity.ApplicationHistory, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	ExportRegister(ctx context.Context, w io.Writer, status string) error
}

type applicationServiceImpl struct {
	appRepo       port.ApplicationRepository
	historyRepo   port.HistoryRepository
	txManager     port.TransactionManager
	exporter      port.RegisterExporter
	dispatcher    dispatcher.Dispatcher
	entryFeeCents int64
	logger        Logger
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	appRepo port.ApplicationRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	exporter port.RegisterExporter,
	d dispatcher.Dispatcher,
	entryFeeCents int64,
	logger Logger,
) ApplicationService {
	if entryFeeCents <= 0 {
		entryFeeCents = entity.DefaultEntryFeeCents
	}
	return &applicationServiceImpl{
		appRepo:       appRepo,
		historyRepo:   historyRepo,
		txManager:     txManager,
		exporter:      exporter,
		dispatcher:    d,
		entryFeeCents: entryFeeCents,
		logger:        logger,
	}
}

// CreateDraft creates an application in PENDING_SUBMISSION
func (s *applicationServiceImpl) CreateDraft(ctx context.Context, applicant entity.Applicant) (*entity.MemberApplication, error) {
	applicant = sanitizeApplicant(applicant)
	if applicant.FullName == "" {
		return nil, domainwf.NewValidationError(domainwf.CodeMissingRequiredField, "applicant.full_name", "applicant name is required")
	}
	if err := workflow.ValidateApplicant(applicant); err != nil {
		return nil, err
	}

	now := time.Now()
	app := entity.NewDraftApplication(domainwf.StatePendingSubmission.String(), applicant, now)
	app.EntryFee.AmountCents = s.entryFeeCents

	actor := workflow.ActorFrom(ctx)
	actionData, err := json.Marshal(map[string]interface{}{"applicant": applicant})
	if err != nil {
		return nil, fmt.Errorf("failed to encode applicant: %w", err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.appRepo.Create(txCtx, app); err != nil {
			return storeUnavailable(fmt.Errorf("create application: %w", err))
		}

		history := &entity.ApplicationHistory{
			ApplicationID: app.ID,
			ActorID:       actor,
			NewStatus:     app.Status,
			ActionType:    "CREATE",
			ActionData:    string(actionData),
			Timestamp:     now,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return storeUnavailable(fmt.Errorf("create history: %w", err))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create draft application", "error", err)
		return nil, storeUnavailable(err)
	}

	s.logger.Info("Draft application created", "application_id", app.ID, "actor", actor)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeApplicationCreated, app.ID, actor, map[string]interface{}{
			"applicant_name": app.Applicant.FullName,
			"new_status":     app.Status,
		}))
	}

	return app, nil
}

// GetApplication returns an application or a not-found workflow error
func (s *applicationServiceImpl) GetApplication(ctx context.Context, id int64) (*entity.MemberApplication, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get application", "error", err, "application_id", id)
		return nil, storeUnavailable(fmt.Errorf("get application %d: %w", id, err))
	}
	if app == nil {
		return nil, domainwf.NewNotFoundError(id)
	}
	return app, nil
}

// ListApplications returns applications, newest first
func (s *applicationServiceImpl) ListApplications(ctx context.Context, filter port.ApplicationFilter) ([]*entity.MemberApplication, error) {
	if filter.Status != "" && !domainwf.State(filter.Status).IsValid() {
		return nil, domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "status",
			fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	apps, err := s.appRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list applications", "error", err, "status", filter.Status)
		return nil, storeUnavailable(fmt.Errorf("list applications: %w", err))
	}
	return apps, nil
}

// GetHistory returns the audit trail of an application, oldest first
func (s *applicationServiceImpl) GetHistory(ctx context.Context, id int64) ([]*entity.ApplicationHistory, error) {
	if _, err := s.GetApplication(ctx, id); err != nil {
		return nil, err
	}

	history, err := s.historyRepo.GetByApplicationID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get history", "error", err, "application_id", id)
		return nil, storeUnavailable(fmt.Errorf("get history: %w", err))
	}
	return history, nil
}

// CountByStatus returns the number of applications in each status
func (s *applicationServiceImpl) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts, err := s.appRepo.CountByStatus(ctx)
	if err != nil {
		return nil, storeUnavailable(fmt.Errorf("count applications: %w", err))
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	for _, state := range domainwf.AllStates() {
		if _, ok := counts[state.String()]; !ok {
			counts[state.String()] = 0
		}
	}
	return counts, nil
}

// ExportRegister writes the application register as a spreadsheet
func (s *applicationServiceImpl) ExportRegister(ctx context.Context, w io.Writer, status string) error {
	if s.exporter == nil {
		return fmt.Errorf("register export is not configured")
	}

	if status != "" && !domainwf.State(status).IsValid() {
		return domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "status", fmt.Sprintf("unknown status %q", status))
	}

	var apps []*entity.MemberApplication
	for offset := 0; offset < exportLimit; offset += maxListLimit {
		page, err := s.appRepo.List(ctx, port.ApplicationFilter{Status: status, Limit: maxListLimit, Offset: offset})
		if err != nil {
			return storeUnavailable(fmt.Errorf("list applications: %w", err))
		}
		apps = append(apps, page...)
		if len(page) < maxListLimit {
			break
		}
	}

	if err := s.exporter.WriteRegister(w, apps); err != nil {
		s.logger.Error("Failed to export register", "error", err, "count", len(apps))
		return fmt.Errorf("export register: %w", err)
	}

	s.logger.Info("Application register exported", "count", len(apps), "status", status)
	return nil
}

func sanitizeApplicant(a entity.Applicant) entity.Applicant {
	return entity.Applicant{
		FullName: utils.SanitizeString(a.FullName),
		ICNumber: utils.SanitizeString(a.ICNumber),
		Email:    utils.SanitizeString(a.Email),
		Phone:    utils.SanitizeString(a.Phone),
		Address:  utils.SanitizeString(a.Address),
	}
}

// storeUnavailable reports a persistence failure as a dependency error.
// Workflow errors pass through unchanged.
func storeUnavailable(err error) error {
	if _, ok := domainwf.AsError(err); ok {
		return err
	}
	return domainwf.NewDependencyError("application store", err)
}
