package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heapwalker/pkg/errors"
)

var snapshotRowColumns = []string{
	"id", "uuid", "name", "storage_key", "view_id", "object_count", "class_count", "create_time",
}

func TestSQLSnapshotRepository_CreateMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLSnapshotRepository(db, DBTypeMySQL)
	rec := &SnapshotRecord{UUID: "uuid-1", Name: "worker", StorageKey: "a.json", ViewID: "ruby_objects", ObjectCount: 3, ClassCount: 2}

	mock.ExpectExec("INSERT INTO heap_snapshot").
		WithArgs("uuid-1", "worker", "a.json", "ruby_objects", 3, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, int64(5), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_CreatePostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLSnapshotRepository(db, DBTypePostgres)
	rec := &SnapshotRecord{StorageKey: "a.json"}

	mock.ExpectQuery(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, int64(9), rec.ID)
	assert.NotEmpty(t, rec.UUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_GetByUUID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLSnapshotRepository(db, DBTypePostgres)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE uuid = $1")).
		WithArgs("uuid-1").
		WillReturnRows(sqlmock.NewRows(snapshotRowColumns).
			AddRow(int64(1), "uuid-1", "worker", "a.json", "ruby_objects", 3, 2, created))

	rec, err := repo.GetByUUID(context.Background(), "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, "a.json", rec.StorageKey)
	assert.Equal(t, created, rec.CreateTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_GetByKeyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLSnapshotRepository(db, DBTypeMySQL)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE storage_key = ?")).
		WithArgs("missing.json").
		WillReturnRows(sqlmock.NewRows(snapshotRowColumns))

	_, err = repo.GetByKey(context.Background(), "missing.json")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLSnapshotRepository(db, DBTypeMySQL)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY create_time DESC, id DESC LIMIT ?")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(snapshotRowColumns).
			AddRow(int64(2), "u2", "", "b.json", "", 0, 0, now).
			AddRow(int64(1), "u1", "", "a.json", "", 0, 0, now))

	records, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b.json", records[0].StorageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLSnapshotRepository(db, DBTypePostgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM heap_snapshot WHERE uuid = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM heap_snapshot WHERE uuid = $1")).
		WithArgs("u2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.True(t, apperrors.IsNotFound(repo.Delete(context.Background(), "u2")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSnapshotRepository_Rebind(t *testing.T) {
	pg := NewSQLSnapshotRepository(nil, DBTypePostgres)
	my := NewSQLSnapshotRepository(nil, DBTypeMySQL)

	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", my.rebind("a = ? AND b = ?"))
}
