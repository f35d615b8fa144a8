package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-rental-booking/internal/model"
)

var userCols = []string{"id", "name", "email", "password_hash", "role", "phone", "status", "join_date"}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Ann", "ann@example.com", sqlmock.AnyArg(), "user", "", "active").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	u := model.User{Name: "Ann", Email: "  Ann@Example.com "}
	err := NewUserRepo(db).Create(context.Background(), &u, "secret1", 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := NewUserRepo(db).GetByEmail(context.Background(), "Nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_UpdateOnlyTouchesGivenFields(t *testing.T) {
	db, mock := newMock(t)
	status := model.UserSuspended
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status=? WHERE id=?")).
		WithArgs("suspended", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "Bo", "bo@example.com", "h", "user", "", "suspended", time.Now().UTC()))

	u, err := NewUserRepo(db).Update(context.Background(), 3, model.UserPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.UserSuspended, u.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	cols := []string{"user_id", "expires_at", "revoked_at"}
	t.Run("valid", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).WithArgs("h").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(5, time.Now().UTC().Add(time.Hour), nil))
		id, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h")
		require.NoError(t, err)
		assert.Equal(t, uint64(5), id)
	})
	t.Run("expired", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens")).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(5, time.Now().UTC().Add(-time.Hour), nil))
		_, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
	t.Run("unknown", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens")).WillReturnRows(sqlmock.NewRows(cols))
		_, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestTokenRepo_PurgeExpired(t *testing.T) {
	db, mock := newMock(t)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < ?")).
		WithArgs(cutoff, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := NewTokenRepo(db).PurgeExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
