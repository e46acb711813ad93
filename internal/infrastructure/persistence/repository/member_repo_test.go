package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var memberRowColumns = []string{"id", "member_id", "full_name", "ic_number", "status", "joined_at", "created_at"}

func TestMemberRepository_GetByMemberIDOrIC(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMemberRepository(db, zap.NewNop())

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM members WHERE member_id = \\? OR ic_number = \\?").
			WithArgs("TM202400001", "TM202400001").
			WillReturnRows(sqlmock.NewRows(memberRowColumns).
				AddRow(1, "TM202400001", "Alice Tan", "800101145555", "ACTIVE", testTime, testTime))

		member, err := repo.GetByMemberIDOrIC(context.Background(), "TM202400001")
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.Equal(t, "Alice Tan", member.FullName)
		assert.True(t, member.IsActive())
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM members").
			WithArgs("nobody", "nobody").
			WillReturnRows(sqlmock.NewRows(memberRowColumns))

		member, err := repo.GetByMemberIDOrIC(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Nil(t, member)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_NextPermanentMemberID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMemberRepository(db, zap.NewNop())

	mock.ExpectQuery("INSERT INTO member_id_sequences (.+) RETURNING last_value").
		WithArgs("TM", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(12))

	id, err := repo.NextPermanentMemberID(context.Background(), "TM", 2026)
	require.NoError(t, err)
	assert.Equal(t, "TM202600012", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_Search_EscapesWildcards(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMemberRepository(db, zap.NewNop())

	mock.ExpectQuery("SELECT (.+) FROM members WHERE full_name LIKE").
		WithArgs(`%50\%%`, `%50\%%`, `%50\%%`, 20).
		WillReturnRows(sqlmock.NewRows(memberRowColumns))

	members, err := repo.Search(context.Background(), "50%", 20)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\d`, escapeLike(`a_b%c\d`))
	assert.Equal(t, "alice", escapeLike("alice"))
}
