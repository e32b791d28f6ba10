package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardbox/service/internal/user"
)

func userRow(id, avatar string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"id", "name", "about", "avatar", "email", "created_at", "updated_at"}).
		AddRow(id, "Guest", "...", avatar, "guest@example.com", now, now)
}

func TestGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := user.NewRepository(mock)

	mock.ExpectQuery(`SELECT id, name, about, avatar, email, created_at, updated_at FROM users WHERE id`).
		WithArgs("u1").
		WillReturnRows(userRow("u1", "a.webp"))

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "a.webp", u.Avatar)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := user.NewRepository(mock)

	mock.ExpectQuery(`SELECT id, name, about, avatar, email, created_at, updated_at FROM users WHERE id`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestFindByAvatar(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := user.NewRepository(mock)

	mock.ExpectQuery(`SELECT id, name, about, avatar, email, created_at, updated_at FROM users WHERE avatar`).
		WithArgs("a.webp").
		WillReturnRows(userRow("u1", "a.webp"))

	u, err := repo.FindByAvatar(context.Background(), "a.webp")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestFindByAvatarNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := user.NewRepository(mock)

	mock.ExpectQuery(`SELECT id, name, about, avatar, email, created_at, updated_at FROM users WHERE avatar`).
		WithArgs("unowned.webp").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.FindByAvatar(context.Background(), "unowned.webp")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUpdateAvatar(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := user.NewRepository(mock)

	mock.ExpectQuery(`UPDATE users SET avatar`).
		WithArgs("u1", "new.webp").
		WillReturnRows(userRow("u1", "new.webp"))

	u, err := repo.UpdateAvatar(context.Background(), "u1", "new.webp")
	require.NoError(t, err)
	assert.Equal(t, "new.webp", u.Avatar)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAvatarUnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := user.NewRepository(mock)

	mock.ExpectQuery(`UPDATE users SET avatar`).
		WithArgs("ghost", "new.webp").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.UpdateAvatar(context.Background(), "ghost", "new.webp")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
