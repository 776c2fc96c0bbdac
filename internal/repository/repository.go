// Package repository stores the snapshot catalog: which heap snapshots exist,
// where they live in object storage and which view they are browsed under.
package repository

import (
	"context"
)

// SnapshotRepository defines catalog operations.
type SnapshotRepository interface {
	// Create inserts a record. A missing UUID or CreateTime is filled in.
	Create(ctx context.Context, rec *SnapshotRecord) error

	// GetByUUID retrieves a record by its UUID.
	GetByUUID(ctx context.Context, uuid string) (*SnapshotRecord, error)

	// GetByKey retrieves a record by its storage key.
	GetByKey(ctx context.Context, key string) (*SnapshotRecord, error)

	// List returns up to limit records, newest first. A non-positive limit returns all.
	List(ctx context.Context, limit int) ([]*SnapshotRecord, error)

	// Delete removes a record by UUID.
	Delete(ctx context.Context, uuid string) error
}
