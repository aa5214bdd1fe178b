package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/verte-zerg/flashvocab/internal/model"
)

// MockCardStore is a mock for the card store
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) ListSets(ctx context.Context) ([]model.SetSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SetSummary), args.Error(1)
}

func (m *MockCardStore) GetSet(ctx context.Context, id int64, includeAll bool) (model.SetDetail, error) {
	args := m.Called(ctx, id, includeAll)
	return args.Get(0).(model.SetDetail), args.Error(1)
}

func (m *MockCardStore) ImportSet(ctx context.Context, name, description string, rows []model.Row) (model.ImportResult, error) {
	args := m.Called(ctx, name, description, rows)
	return args.Get(0).(model.ImportResult), args.Error(1)
}

func (m *MockCardStore) DeleteSet(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCardStore) UpdateSet(ctx context.Context, id int64, patch model.SetPatch) (model.VocabularySet, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(model.VocabularySet), args.Error(1)
}

func (m *MockCardStore) SetCardLearned(ctx context.Context, cardID int64, learned bool) error {
	args := m.Called(ctx, cardID, learned)
	return args.Error(0)
}

func (m *MockCardStore) ResetSet(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCardStore) ReorderSets(ctx context.Context, orderedIDs []int64) error {
	args := m.Called(ctx, orderedIDs)
	return args.Error(0)
}
