package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/heapwalker/internal/repository"
)

// MockSnapshotRepository is a mock implementation of the SnapshotRepository interface.
type MockSnapshotRepository struct {
	mock.Mock
}

var _ repository.SnapshotRepository = (*MockSnapshotRepository)(nil)

// Create mocks the Create method.
func (m *MockSnapshotRepository) Create(ctx context.Context, rec *repository.SnapshotRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// GetByUUID mocks the GetByUUID method.
func (m *MockSnapshotRepository) GetByUUID(ctx context.Context, uuid string) (*repository.SnapshotRecord, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SnapshotRecord), args.Error(1)
}

// GetByKey mocks the GetByKey method.
func (m *MockSnapshotRepository) GetByKey(ctx context.Context, key string) (*repository.SnapshotRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SnapshotRecord), args.Error(1)
}

// List mocks the List method.
func (m *MockSnapshotRepository) List(ctx context.Context, limit int) ([]*repository.SnapshotRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.SnapshotRecord), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockSnapshotRepository) Delete(ctx context.Context, uuid string) error {
	args := m.Called(ctx, uuid)
	return args.Error(0)
}

// ExpectGetByUUID sets up an expectation for GetByUUID.
func (m *MockSnapshotRepository) ExpectGetByUUID(uuid string, rec *repository.SnapshotRecord, err error) *mock.Call {
	return m.On("GetByUUID", mock.Anything, uuid).Return(rec, err)
}

// ExpectCreate sets up an expectation for Create.
func (m *MockSnapshotRepository) ExpectCreate(err error) *mock.Call {
	return m.On("Create", mock.Anything, mock.AnythingOfType("*repository.SnapshotRecord")).Return(err)
}

// ExpectList sets up an expectation for List.
func (m *MockSnapshotRepository) ExpectList(limit int, recs []*repository.SnapshotRecord, err error) *mock.Call {
	return m.On("List", mock.Anything, limit).Return(recs, err)
}
