package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/infrastructure/persistence/sqlite"
)

const memberColumns = `id, member_id, full_name, ic_number, status, joined_at, created_at`

// MemberRepository implements port.MemberRepository
type MemberRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB, logger *zap.Logger) port.MemberRepository {
	return &MemberRepository{
		db:     db,
		logger: logger,
	}
}

// Create registers a new member
func (r *MemberRepository) Create(ctx context.Context, member *entity.Member) error {
	query := `
		INSERT INTO members (member_id, full_name, ic_number, status, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		member.MemberID,
		member.FullName,
		member.ICNumber,
		member.Status,
		member.JoinedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create member", zap.String("member_id", member.MemberID), zap.Error(err))
		return fmt.Errorf("failed to create member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	member.ID = id
	return nil
}

// GetByMemberIDOrIC finds a member by permanent member ID or IC number
func (r *MemberRepository) GetByMemberIDOrIC(ctx context.Context, key string) (*entity.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE member_id = ? OR ic_number = ? ORDER BY id LIMIT 1`

	var member entity.Member
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, key, key).Scan(
		&member.ID,
		&member.MemberID,
		&member.FullName,
		&member.ICNumber,
		&member.Status,
		&member.JoinedAt,
		&member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get member", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &member, nil
}

// NextPermanentMemberID increments the sequence for prefix and year and formats the result.
// Call it inside the transaction that inserts the member.
func (r *MemberRepository) NextPermanentMemberID(ctx context.Context, prefix string, year int) (string, error) {
	query := `
		INSERT INTO member_id_sequences (prefix, year, last_value) VALUES (?, ?, 1)
		ON CONFLICT (prefix, year) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`

	var seq int
	if err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, prefix, year).Scan(&seq); err != nil {
		r.logger.Error("Failed to allocate member ID", zap.String("prefix", prefix), zap.Int("year", year), zap.Error(err))
		return "", fmt.Errorf("failed to allocate member id: %w", err)
	}

	return entity.FormatPermanentMemberID(prefix, year, seq), nil
}

// Search returns members whose name, member ID or IC number contains query
func (r *MemberRepository) Search(ctx context.Context, query string, limit int) ([]*entity.Member, error) {
	sqlQuery := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE full_name LIKE ? ESCAPE '\' OR member_id LIKE ? ESCAPE '\' OR ic_number LIKE ? ESCAPE '\'
		ORDER BY full_name ASC
		LIMIT ?
	`
	pattern := "%" + escapeLike(query) + "%"

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, sqlQuery, pattern, pattern, pattern, limit)
	if err != nil {
		r.logger.Error("Failed to search members", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("failed to search members: %w", err)
	}
	defer rows.Close()

	members := []*entity.Member{}
	for rows.Next() {
		var member entity.Member
		err := rows.Scan(
			&member.ID,
			&member.MemberID,
			&member.FullName,
			&member.ICNumber,
			&member.Status,
			&member.JoinedAt,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &member)
	}

	return members, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Verify interface compliance
var _ port.MemberRepository = (*MemberRepository)(nil)
