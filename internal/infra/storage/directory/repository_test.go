package directory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
)

const providerJoins = "FROM specialist_services ss " +
	"JOIN specialists sp ON sp.id = ss.specialist_id " +
	"JOIN users u ON u.id = sp.user_id"

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestGetService(t *testing.T) {
	query := "SELECT id, name, duration_minutes, price, is_active FROM services WHERE id = $1"

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duration_minutes", "price", "is_active"}).
				AddRow(int64(1), "Массаж", int64(60), 2500.0, false))

		s, err := repo.GetService(context.Background(), 1)

		require.NoError(t, err)
		assert.Equal(t, &domain.Service{ID: 1, Name: "Массаж", DurationMinutes: 60, Price: 2500, IsActive: false}, s)
	})

	t.Run("null price", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duration_minutes", "price", "is_active"}).
				AddRow(int64(2), "Сауна", int64(90), nil, true))

		s, err := repo.GetService(context.Background(), 2)

		require.NoError(t, err)
		assert.Zero(t, s.Price)
		assert.True(t, s.IsActive)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duration_minutes", "price", "is_active"}))

		_, err := repo.GetService(context.Background(), 99)

		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(1)).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetService(context.Background(), 1)

		assert.ErrorIs(t, err, ErrScanRow)
		assert.NotErrorIs(t, err, ErrServiceNotFound)
	})
}

func TestSpecialistProvides(t *testing.T) {
	query := "SELECT EXISTS ( SELECT 1 " + providerJoins +
		" WHERE ss.service_id = $1 AND ss.specialist_id = $2 AND u.role = $3 )"

	for _, want := range []bool{true, false} {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(3), int64(10), "specialist").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(want))

		ok, err := repo.SpecialistProvides(context.Background(), 10, 3)

		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
}

func TestAnySpecialistProvides(t *testing.T) {
	query := "SELECT EXISTS ( SELECT 1 " + providerJoins +
		" WHERE ss.service_id = $1 AND u.role = $2 )"

	t.Run("exists", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(3), "specialist").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := repo.AnySpecialistProvides(context.Background(), 3)

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(3), "specialist").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.AnySpecialistProvides(context.Background(), 3)

		assert.ErrorIs(t, err, ErrScanRow)
	})
}

func TestListSpecialistsFor(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("SELECT DISTINCT ss.specialist_id " + providerJoins +
		" WHERE ss.service_id = $1 AND u.role = $2 ORDER BY ss.specialist_id ASC").
		WithArgs(int64(3), "specialist").
		WillReturnRows(sqlmock.NewRows([]string{"specialist_id"}).AddRow(int64(10)).AddRow(int64(11)))

	ids, err := repo.ListSpecialistsFor(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, ids)
}

func TestSpecialistIDByUserID(t *testing.T) {
	query := "SELECT id FROM specialists WHERE user_id = $1"

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))

		id, err := repo.SpecialistIDByUserID(context.Background(), 100)

		require.NoError(t, err)
		assert.Equal(t, int64(10), id)
	})

	t.Run("no profile", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.SpecialistIDByUserID(context.Background(), 5)

		assert.ErrorIs(t, err, ErrSpecialistNotFound)
	})
}

func TestLockSpecialist(t *testing.T) {
	query := "SELECT id FROM specialists WHERE id = $1 FOR UPDATE"

	t.Run("locks inside transaction", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(query).
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)

		err = repo.LockSpecialist(dbmetrics.WithTx(context.Background(), tx), 10)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	})

	t.Run("unknown specialist", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := repo.LockSpecialist(context.Background(), 99)

		assert.ErrorIs(t, err, ErrSpecialistNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(10)).
			WillReturnError(errors.New("lock timeout"))

		err := repo.LockSpecialist(context.Background(), 10)

		assert.ErrorIs(t, err, ErrExecQuery)
	})
}
