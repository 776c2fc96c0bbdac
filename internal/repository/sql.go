package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/heapwalker/pkg/errors"
)

const snapshotColumns = "id, uuid, COALESCE(name, ''), storage_key, COALESCE(view_id, ''), object_count, class_count, create_time"

// SQLSnapshotRepository implements SnapshotRepository on database/sql for
// deployments that share a connection pool with other tools.
type SQLSnapshotRepository struct {
	db     *sql.DB
	dbType DBType
}

// NewSQLSnapshotRepository creates a repository; dbType selects the placeholder style.
func NewSQLSnapshotRepository(db *sql.DB, dbType DBType) *SQLSnapshotRepository {
	return &SQLSnapshotRepository{db: db, dbType: dbType}
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *SQLSnapshotRepository) rebind(query string) string {
	if r.dbType != DBTypePostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// Create implements SnapshotRepository.
func (r *SQLSnapshotRepository) Create(ctx context.Context, rec *SnapshotRecord) error {
	if rec == nil || rec.StorageKey == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "snapshot record requires a storage key")
	}
	rec.prepare(time.Now())

	args := []interface{}{rec.UUID, rec.Name, rec.StorageKey, rec.ViewID, rec.ObjectCount, rec.ClassCount, rec.CreateTime}
	query := `
		INSERT INTO heap_snapshot (uuid, name, storage_key, view_id, object_count, class_count, create_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if r.dbType == DBTypePostgres {
		err := r.db.QueryRowContext(ctx, r.rebind(query+" RETURNING id"), args...).Scan(&rec.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to create snapshot record", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to create snapshot record", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// GetByUUID implements SnapshotRepository.
func (r *SQLSnapshotRepository) GetByUUID(ctx context.Context, uuid string) (*SnapshotRecord, error) {
	return r.first(ctx, "uuid", uuid)
}

// GetByKey implements SnapshotRepository.
func (r *SQLSnapshotRepository) GetByKey(ctx context.Context, key string) (*SnapshotRecord, error) {
	return r.first(ctx, "storage_key", key)
}

func (r *SQLSnapshotRepository) first(ctx context.Context, column, value string) (*SnapshotRecord, error) {
	query := r.rebind("SELECT " + snapshotColumns + " FROM heap_snapshot WHERE " + column + " = ? ORDER BY id DESC LIMIT 1")

	rec, err := scanSnapshot(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "snapshot not found: %s", value)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get snapshot record", err)
	}
	return rec, nil
}

// List implements SnapshotRepository.
func (r *SQLSnapshotRepository) List(ctx context.Context, limit int) ([]*SnapshotRecord, error) {
	query := "SELECT " + snapshotColumns + " FROM heap_snapshot ORDER BY create_time DESC, id DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list snapshot records", err)
	}
	defer rows.Close()

	var records []*SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to scan snapshot record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list snapshot records", err)
	}
	return records, nil
}

// Delete implements SnapshotRepository.
func (r *SQLSnapshotRepository) Delete(ctx context.Context, uuid string) error {
	result, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM heap_snapshot WHERE uuid = ?"), uuid)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to delete snapshot record", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to delete snapshot record", err)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "snapshot not found: %s", uuid)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*SnapshotRecord, error) {
	rec := &SnapshotRecord{}
	err := row.Scan(
		&rec.ID, &rec.UUID, &rec.Name, &rec.StorageKey, &rec.ViewID,
		&rec.ObjectCount, &rec.ClassCount, &rec.CreateTime,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
