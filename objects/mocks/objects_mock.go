package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) PutImage(ctx context.Context, userId string, folder string, filename string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, userId, folder, filename, r, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) ImageURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) DeleteImage(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

func (m *MockImageStore) DeleteUserImages(ctx context.Context, userId string) (int, error) {
	args := m.Called(ctx, userId)
	return args.Int(0), args.Error(1)
}
