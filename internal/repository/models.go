package repository

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotRecord represents the heap_snapshot table.
type SnapshotRecord struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UUID        string    `gorm:"column:uuid;size:36;uniqueIndex;not null" json:"uuid"`
	Name        string    `gorm:"column:name;size:255" json:"name"`
	StorageKey  string    `gorm:"column:storage_key;size:1024;index;not null" json:"storage_key"`
	ViewID      string    `gorm:"column:view_id;size:128" json:"view_id"`
	ObjectCount int       `gorm:"column:object_count" json:"object_count"`
	ClassCount  int       `gorm:"column:class_count" json:"class_count"`
	CreateTime  time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

// TableName returns the table name.
func (SnapshotRecord) TableName() string {
	return "heap_snapshot"
}

// prepare fills in generated columns before insertion.
func (r *SnapshotRecord) prepare(now time.Time) {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	if r.CreateTime.IsZero() {
		r.CreateTime = now
	}
}
