package snapshot

import (
	"bytes"
	"context"
	"strings"

	"github.com/heapwalker/internal/storage"
	"github.com/heapwalker/pkg/compression"
	apperrors "github.com/heapwalker/pkg/errors"
	"github.com/heapwalker/pkg/heap"
)

// Snapshot is a decoded snapshot together with where it came from.
type Snapshot struct {
	Key  string
	Meta Meta
	Heap *heap.MemoryHeap
}

// Load downloads and decodes the snapshot stored at key.
func Load(ctx context.Context, store storage.Storage, key string) (*Snapshot, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	h, meta, err := Decode(rc)
	if err != nil {
		return nil, err
	}
	if meta.Name == "" {
		meta.Name = nameFromKey(key)
	}
	return &Snapshot{Key: key, Meta: meta, Heap: h}, nil
}

// Save encodes snap and uploads it to key. The codec is taken from the key suffix.
func Save(ctx context.Context, store storage.Storage, key string, snap *Snapshot) error {
	if snap == nil || snap.Heap == nil {
		return apperrors.New(apperrors.CodeInvalidInput, "snapshot has no heap")
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snap.Heap, snap.Meta, compression.TypeFromKey(key)); err != nil {
		return err
	}
	return store.Upload(ctx, key, &buf)
}

func nameFromKey(key string) string {
	name := key
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	for _, suffix := range []string{".gz", ".zst", ".json"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}
