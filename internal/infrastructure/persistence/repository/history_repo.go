package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/infrastructure/persistence/sqlite"
)

const historyColumns = `application_id, actor_id, previous_status, new_status, action_type, action_data, timestamp`

// HistoryRepository stores the append-only audit trail of applied actions.
// Rows are never updated or deleted.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// Create appends one record. Inside WithTransaction it joins the transition's transaction.
func (r *HistoryRepository) Create(ctx context.Context, h *entity.ApplicationHistory) error {
	if h.ApplicationID == 0 {
		return fmt.Errorf("history record needs an application id")
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now().UTC()
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO application_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ApplicationID, h.ActorID, h.PreviousStatus, h.NewStatus, h.ActionType, h.ActionData, h.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append history",
			zap.Int64("application_id", h.ApplicationID),
			zap.String("action_type", h.ActionType),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	if h.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	return nil
}

// GetByApplicationID returns the trail of one application, oldest first
func (r *HistoryRepository) GetByApplicationID(ctx context.Context, applicationID int64) ([]*entity.ApplicationHistory, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx,
		`SELECT id, `+historyColumns+` FROM application_history WHERE application_id = ? ORDER BY timestamp, id`,
		applicationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for application %d: %w", applicationID, err)
	}
	defer rows.Close()

	trail := make([]*entity.ApplicationHistory, 0, 8)
	for rows.Next() {
		h := new(entity.ApplicationHistory)
		if err := rows.Scan(&h.ID, &h.ApplicationID, &h.ActorID, &h.PreviousStatus,
			&h.NewStatus, &h.ActionType, &h.ActionData, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		trail = append(trail, h)
	}
	return trail, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
