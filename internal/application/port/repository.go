package port

import (
	"context"
	"errors"

	"github.com/garyjia/temple-membership/internal/domain/entity"
)

// ErrVersionConflict is returned by Save when the stored version differs from the expected one
var ErrVersionConflict = errors.New("version conflict")

// ApplicationFilter narrows List results
type ApplicationFilter struct {
	Status string
	Limit  int
	Offset int
}

// ApplicationRepository defines persistence operations for MemberApplication
type ApplicationRepository interface {
	// Create inserts a new application and assigns its ID and initial version
	Create(ctx context.Context, app *entity.MemberApplication) error

	// GetByID returns nil, nil when the application does not exist
	GetByID(ctx context.Context, id int64) (*entity.MemberApplication, error)

	// Save writes the full record when the stored version equals expectedVersion,
	// then bumps app.Version. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, app *entity.MemberApplication, expectedVersion int64) error

	// List returns applications ordered by newest first
	List(ctx context.Context, filter ApplicationFilter) ([]*entity.MemberApplication, error)

	// CountByStatus returns the number of applications per status
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// HistoryRepository defines persistence operations for ApplicationHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ApplicationHistory) error
	GetByApplicationID(ctx context.Context, applicationID int64) ([]*entity.ApplicationHistory, error)
}

// MemberRepository defines persistence operations for registered members
type MemberRepository interface {
	// Create registers a new member
	Create(ctx context.Context, member *entity.Member) error

	// GetByMemberIDOrIC finds a member by permanent member ID or IC number, nil when absent
	GetByMemberIDOrIC(ctx context.Context, key string) (*entity.Member, error)

	// NextPermanentMemberID allocates the next member ID for the given prefix and year
	NextPermanentMemberID(ctx context.Context, prefix string, year int) (string, error)

	// Search returns members whose name, member ID or IC number matches the query
	Search(ctx context.Context, query string, limit int) ([]*entity.Member, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
