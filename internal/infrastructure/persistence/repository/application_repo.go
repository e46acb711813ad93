package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/infrastructure/persistence/sqlite"
)

const applicationColumns = `id, status, version, data, submitted_at, created_at, updated_at`

// ApplicationRepository implements port.ApplicationRepository.
// Indexed fields live in their own columns, the full record is kept as JSON in data.
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new application with version 1
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.MemberApplication) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("failed to encode application: %w", err)
	}

	query := `
		INSERT INTO applications (
			status, version, applicant_name, ic_number, permanent_member_id,
			data, submitted_at, created_at, updated_at
		) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		app.Status,
		app.Applicant.FullName,
		app.Applicant.ICNumber,
		app.Approval.PermanentMemberID,
		string(data),
		app.SubmittedAt,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create application", zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	app.ID = id
	app.Version = 1
	return nil
}

// GetByID retrieves an application, nil when it does not exist
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.MemberApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`

	app, err := scanApplication(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return app, nil
}

// Save writes the application when the stored version matches expectedVersion
func (r *ApplicationRepository) Save(ctx context.Context, app *entity.MemberApplication, expectedVersion int64) error {
	next := *app
	next.Version = expectedVersion + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode application: %w", err)
	}

	query := `
		UPDATE applications SET
			status = ?, version = version + 1, applicant_name = ?, ic_number = ?,
			permanent_member_id = ?, data = ?, submitted_at = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		app.Status,
		app.Applicant.FullName,
		app.Applicant.ICNumber,
		app.Approval.PermanentMemberID,
		string(data),
		app.SubmittedAt,
		app.UpdatedAt,
		app.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save application", zap.Int64("id", app.ID), zap.Error(err))
		return fmt.Errorf("failed to save application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrVersionConflict
	}

	app.Version = next.Version
	return nil
}

// List retrieves applications, newest first
func (r *ApplicationRepository) List(ctx context.Context, filter port.ApplicationFilter) ([]*entity.MemberApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	var args []interface{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.String("status", filter.Status), zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := []*entity.MemberApplication{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

// CountByStatus returns the number of applications per status
func (r *ApplicationRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM applications GROUP BY status`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to count applications", zap.Error(err))
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*entity.MemberApplication, error) {
	var app entity.MemberApplication
	var data string
	var id, version int64
	var status string
	var submittedAt sql.NullTime

	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&id, &status, &version, &data, &submittedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(data), &app); err != nil {
		return nil, fmt.Errorf("failed to decode application %d: %w", id, err)
	}

	app.ID = id
	app.Status = status
	app.Version = version
	app.SubmittedAt = nil
	if submittedAt.Valid {
		t := submittedAt.Time
		app.SubmittedAt = &t
	}
	if createdAt.Valid {
		app.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		app.UpdatedAt = updatedAt.Time
	}
	if app.Documents == nil {
		app.Documents = []string{}
	}

	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
