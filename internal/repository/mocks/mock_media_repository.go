package mocks

import (
	"context"

	"briefapi/internal/model"
	"briefapi/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) Create(ctx context.Context, media *model.Media) (*model.Media, error) {
	args := m.Called(ctx, media)
	if f, ok := args.Get(0).(func(context.Context, *model.Media) *model.Media); ok {
		return f(ctx, media), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaRepository) FindByID(ctx context.Context, id string) (*model.Media, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Media], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Media]), args.Error(1)
}

func (m *MockMediaRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMediaRepository) SetThumbnail(ctx context.Context, id, thumbnailID string) error {
	args := m.Called(ctx, id, thumbnailID)
	return args.Error(0)
}
