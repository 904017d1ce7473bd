package mocks

import (
	"context"

	"briefapi/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) BucketExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStore) CreateBucket(ctx context.Context, name string, opt storage.BucketOptions) error {
	args := m.Called(ctx, name, opt)
	return args.Error(0)
}

func (m *MockObjectStore) Put(ctx context.Context, bucket, key string, data []byte, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key, data, opt)
	if f, ok := args.Get(0).(func(context.Context, string, string, []byte, storage.PutObjectOptions) storage.ObjectInfo); ok {
		return f(ctx, bucket, key, data, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockObjectStore) PublicURL(bucket, key string) string {
	args := m.Called(bucket, key)
	if f, ok := args.Get(0).(func(string, string) string); ok {
		return f(bucket, key)
	}
	return args.String(0)
}

func (m *MockObjectStore) Delete(ctx context.Context, bucket string, keys ...string) error {
	args := m.Called(ctx, bucket, keys)
	return args.Error(0)
}
