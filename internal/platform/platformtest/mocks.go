// Package platformtest provides testify mocks of the platform interfaces.
package platformtest

import (
	"context"
	"io"

	"immo-workers/internal/platform"

	"github.com/stretchr/testify/mock"
)

type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) Invoke(ctx context.Context, function string, payload interface{}) (*platform.Response, error) {
	args := m.Called(ctx, function, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.Response), args.Error(1)
}

type MockEntities struct {
	mock.Mock
}

func (m *MockEntities) Filter(ctx context.Context, entity string, query map[string]interface{}, sort string, limit int, out interface{}) error {
	return m.Called(ctx, entity, query, sort, limit, out).Error(0)
}

func (m *MockEntities) Create(ctx context.Context, entity string, record interface{}, out interface{}) error {
	return m.Called(ctx, entity, record, out).Error(0)
}

func (m *MockEntities) Update(ctx context.Context, entity, id string, patch interface{}, out interface{}) error {
	return m.Called(ctx, entity, id, patch, out).Error(0)
}

func (m *MockEntities) Delete(ctx context.Context, entity, id string) error {
	return m.Called(ctx, entity, id).Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	args := m.Called(ctx, name, r)
	return args.String(0), args.Error(1)
}
