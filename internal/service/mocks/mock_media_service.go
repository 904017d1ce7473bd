package mocks

import (
	"context"

	"briefapi/internal/ingest"
	"briefapi/internal/model"
	"briefapi/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) UploadMedia(ctx context.Context, req ingest.UploadRequest) (*model.Media, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaService) DeleteMedia(ctx context.Context, id string) (*model.Media, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaService) List(ctx context.Context, limit, offset int) (*service.MediaListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MediaListResult), args.Error(1)
}

func (m *MockMediaService) Get(ctx context.Context, id string) (*model.Media, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

var _ service.MediaService = (*MockMediaService)(nil)
