// Package service ties snapshots, node providers and display sessions
// together for the CLI and the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/heapwalker/internal/dynobj"
	"github.com/heapwalker/internal/fields"
	"github.com/heapwalker/internal/nodes"
	"github.com/heapwalker/internal/provider"
	"github.com/heapwalker/internal/repository"
	"github.com/heapwalker/internal/session"
	"github.com/heapwalker/internal/snapshot"
	"github.com/heapwalker/internal/storage"
	"github.com/heapwalker/pkg/config"
	apperrors "github.com/heapwalker/pkg/errors"
	"github.com/heapwalker/pkg/telemetry"
	"github.com/heapwalker/pkg/utils"
)

// DefaultViewID is used when neither the request nor the snapshot names a view.
const DefaultViewID = "ruby_objects"

const (
	defaultHeapCacheSize = 3
	defaultMaxPageSize   = 10000
)

// WalkerService opens field sessions on snapshot objects.
type WalkerService struct {
	store    storage.Storage
	catalog  repository.SnapshotRepository
	registry *provider.Registry
	fields   *provider.FieldsProvider
	sessions *session.Manager
	filter   fields.FilterConfig
	logger   utils.Logger

	maxPageSize int

	mu        sync.RWMutex
	cache     map[string]*snapshot.Snapshot
	cacheSize int
	loads     singleflight.Group
}

// New creates a WalkerService. catalog may be nil, in which case snapshots
// are addressed by storage key only.
func New(cfg config.ViewerConfig, store storage.Storage, catalog repository.SnapshotRepository, logger utils.Logger) *WalkerService {
	logger = utils.OrNull(logger)

	fieldsCfg := provider.DefaultFieldsConfig()
	if cfg.ViewPrefix != "" {
		fieldsCfg.ViewPrefix = cfg.ViewPrefix
	}
	if cfg.PageSize > 0 {
		fieldsCfg.PageSize = cfg.PageSize
	}
	if len(cfg.DynamicObjectTypes) > 0 {
		fieldsCfg.DynamicObjectTypes = cfg.DynamicObjectTypes
	}
	if cfg.WrapperTypes != nil {
		fieldsCfg.WrapperTypes = cfg.WrapperTypes
	}
	fieldsCfg.Filter = fields.FilterConfig{IncludeInstance: cfg.IncludeInstance, IncludeStatic: cfg.IncludeStatic}

	fp := provider.NewFieldsProvider(fieldsCfg, logger)
	registry := provider.NewRegistry()
	registry.Register(fp, provider.FieldsProviderPosition)

	cacheSize := cfg.HeapCacheSize
	if cacheSize <= 0 {
		cacheSize = defaultHeapCacheSize
	}
	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = max(defaultMaxPageSize, fieldsCfg.PageSize)
	}

	return &WalkerService{
		store:     store,
		catalog:   catalog,
		registry:  registry,
		fields:    fp,
		sessions:  session.NewManager(session.Config{TTL: cfg.SessionTTL, MaxSessions: cfg.MaxSessions}, logger),
		filter:    fieldsCfg.Filter,
		logger:    logger,
		cache:     make(map[string]*snapshot.Snapshot),
		cacheSize: cacheSize,

		maxPageSize: maxPageSize,
	}
}

// Registry returns the provider registry so hosts can add providers.
func (s *WalkerService) Registry() *provider.Registry {
	return s.registry
}

// Sessions returns the session manager.
func (s *WalkerService) Sessions() *session.Manager {
	return s.sessions
}

// OpenFields lists the fields of an object in a new session.
func (s *WalkerService) OpenFields(ctx context.Context, req OpenRequest) (page *Page, err error) {
	ctx, span := telemetry.StartSpan(ctx, "walker.open_fields",
		attribute.String("snapshot", req.Snapshot),
		attribute.String("object", fmt.Sprintf("0x%x", req.ObjectID)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	key, err := parseSort(req.SortKey, req.SortOrder)
	if err != nil {
		return nil, err
	}
	if req.PageSize < 0 || req.PageSize > s.maxPageSize {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "page size %d out of range (max %d)", req.PageSize, s.maxPageSize)
	}

	snap, err := s.resolve(ctx, req.Snapshot)
	if err != nil {
		return nil, err
	}

	obj, err := s.lookup(snap, req.ObjectID)
	if err != nil {
		return nil, err
	}

	viewID := req.ViewID
	if viewID == "" {
		viewID = snap.Meta.View
	}
	if viewID == "" {
		viewID = DefaultViewID
	}

	filterCfg := s.filter
	if req.IncludeInstance != nil {
		filterCfg.IncludeInstance = *req.IncludeInstance
	}
	if req.IncludeStatic != nil {
		filterCfg.IncludeStatic = *req.IncludeStatic
	}

	buf, p := s.registry.GetNodes(provider.NewObjectNode(obj), snap.Heap, viewID, provider.Request{
		Filter:    &filterCfg,
		SortKey:   key.key,
		SortOrder: key.order,
		PageSize:  req.PageSize,
	})
	if buf == nil {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "no provider supports view %q", viewID)
	}

	sess, err := s.sessions.Create(snap.Key, obj.ID(), viewID, p.Name(), buf)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("session", sess.ID).Info("Opened %s in %s: %d fields", obj.DisplayName(), snap.Key, buf.Len())
	return s.page(sess, obj.DisplayName(), sess.Entries()), nil
}

// LoadMore materializes the next page of a session.
func (s *WalkerService) LoadMore(ctx context.Context, sessionID string) (page *Page, err error) {
	_, span := telemetry.StartSpan(ctx, "walker.load_more", attribute.String("session", sessionID))
	defer func() { telemetry.EndSpan(span, err) }()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.page(sess, s.objectName(sess), sess.LoadMore()), nil
}

// Page returns the current entries of a session without changing its state.
func (s *WalkerService) Page(ctx context.Context, sessionID string) (*Page, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.page(sess, s.objectName(sess), sess.Entries()), nil
}

// CloseSession discards a session.
func (s *WalkerService) CloseSession(ctx context.Context, sessionID string) error {
	return s.sessions.Close(sessionID)
}

// ListSnapshots lists catalogued snapshots, or the stored keys when there is no catalog.
func (s *WalkerService) ListSnapshots(ctx context.Context) (list []SnapshotInfo, err error) {
	ctx, span := telemetry.StartSpan(ctx, "walker.list_snapshots")
	defer func() { telemetry.EndSpan(span, err) }()

	if s.catalog != nil {
		records, err := s.catalog.List(ctx, 0)
		if err != nil {
			return nil, err
		}
		list = make([]SnapshotInfo, len(records))
		for i, r := range records {
			list[i] = SnapshotInfo{
				UUID: r.UUID, Name: r.Name, Key: r.StorageKey, ViewID: r.ViewID,
				ObjectCount: r.ObjectCount, ClassCount: r.ClassCount,
			}
		}
		return list, nil
	}

	keys, err := s.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	list = make([]SnapshotInfo, len(keys))
	for i, k := range keys {
		list[i] = SnapshotInfo{Name: k, Key: k}
	}
	return list, nil
}

// RegisterSnapshot validates the snapshot stored at key and adds it to the catalog.
func (s *WalkerService) RegisterSnapshot(ctx context.Context, key, name string) (rec *repository.SnapshotRecord, err error) {
	ctx, span := telemetry.StartSpan(ctx, "walker.register_snapshot", attribute.String("key", key))
	defer func() { telemetry.EndSpan(span, err) }()

	if s.catalog == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, "no snapshot catalog configured")
	}
	s.InvalidateSnapshot(key)
	snap, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !s.fields.Recognizer().HasDynamicObjectClasses(snap.Heap) {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "snapshot %s has no dynamic object classes", key)
	}
	if name == "" {
		name = snap.Meta.Name
	}
	stats := snap.Heap.Stats()
	rec = &repository.SnapshotRecord{
		Name:        name,
		StorageKey:  key,
		ViewID:      snap.Meta.View,
		ObjectCount: stats.Instances,
		ClassCount:  stats.Classes,
	}
	if err := s.catalog.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("Registered snapshot %s (%s) as %s", key, name, rec.UUID)
	return rec, nil
}

func (s *WalkerService) page(sess *session.Session, object string, list []nodes.Entry) *Page {
	state, left := sess.Status()
	return &Page{
		SessionID: sess.ID,
		Snapshot:  sess.SnapshotKey,
		Object:    object,
		ViewID:    sess.ViewID,
		Provider:  sess.Provider,
		State:     state.String(),
		Total:     sess.Total(),
		Remaining: left,
		Entries:   toEntries(list),
	}
}

func (s *WalkerService) objectName(sess *session.Session) string {
	s.mu.RLock()
	snap, ok := s.cache[sess.SnapshotKey]
	s.mu.RUnlock()
	if ok {
		if obj := s.fields.Recognizer().Lookup(snap.Heap, sess.ObjectID); obj != nil {
			return obj.DisplayName()
		}
	}
	return fmt.Sprintf("0x%x", sess.ObjectID)
}

func (s *WalkerService) lookup(snap *snapshot.Snapshot, id uint64) (*dynobj.DynamicObject, error) {
	if _, ok := snap.Heap.Instance(id); !ok {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "object 0x%x not found in %s", id, snap.Key)
	}
	obj := s.fields.Recognizer().Lookup(snap.Heap, id)
	if obj == nil {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "object 0x%x (%s) is not a dynamic object", id, snap.Heap.ClassName(id))
	}
	return obj, nil
}

// resolve maps a catalog UUID or storage key to a loaded snapshot.
func (s *WalkerService) resolve(ctx context.Context, ref string) (*snapshot.Snapshot, error) {
	if ref == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "snapshot is required")
	}
	key := ref
	if s.catalog != nil {
		rec, err := s.catalog.GetByUUID(ctx, ref)
		switch {
		case err == nil:
			key = rec.StorageKey
		case !apperrors.IsNotFound(err):
			return nil, err
		}
	}
	return s.load(ctx, key)
}

// load returns the cached snapshot for key, loading it on a miss.
// Concurrent misses on the same key share one load; the cache lock is
// never held while reading storage.
func (s *WalkerService) load(ctx context.Context, key string) (*snapshot.Snapshot, error) {
	if snap, ok := s.cached(key); ok {
		return snap, nil
	}

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		if snap, ok := s.cached(key); ok {
			return snap, nil
		}
		snap, err := snapshot.Load(ctx, s.store, key)
		if err != nil {
			return nil, err
		}
		s.insert(key, snap)

		stats := snap.Heap.Stats()
		s.logger.Info("Loaded snapshot %s: %d classes, %d objects", key, stats.Classes, stats.Instances)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot.Snapshot), nil
}

func (s *WalkerService) cached(key string) (*snapshot.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.cache[key]
	return snap, ok
}

func (s *WalkerService) insert(key string, snap *snapshot.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[key]; !ok && len(s.cache) >= s.cacheSize {
		for k := range s.cache {
			delete(s.cache, k)
			s.logger.Debug("Evicted snapshot %s from cache", k)
			break
		}
	}
	s.cache[key] = snap
}

// InvalidateSnapshot drops a cached snapshot. A load already in flight for
// key is not joined by later callers.
func (s *WalkerService) InvalidateSnapshot(key string) {
	s.loads.Forget(key)
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}

type sortSpec struct {
	key   nodes.SortKey
	order nodes.SortOrder
}

func parseSort(key, order string) (sortSpec, error) {
	k, err := nodes.ParseSortKey(key)
	if err != nil {
		return sortSpec{}, err
	}
	o, err := nodes.ParseSortOrder(order)
	if err != nil {
		return sortSpec{}, err
	}
	return sortSpec{key: k, order: o}, nil
}
