package autocheck_test

import (
	"context"

	"modcheck/backend/internal/autocheck"
	"modcheck/backend/internal/models"
	"modcheck/backend/internal/scoring"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetModerationPolicy(ctx context.Context) (*models.ModerationPolicy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModerationPolicy), args.Error(1)
}

func (m *MockStorage) GetReport(ctx context.Context, id string) (*models.AbuseReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AbuseReport), args.Error(1)
}

func (m *MockStorage) FindNote(ctx context.Context, id string) (*models.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockStorage) FindRootUser(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) DeleteNote(ctx context.Context, actor models.Actor, note *models.Note) error {
	args := m.Called(ctx, actor, note)
	return args.Error(0)
}

func (m *MockSink) InsertAutoCheckRecord(ctx context.Context, rec *models.AutoCheckRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockSink) UpdateReportStatus(ctx context.Context, reportID string, status models.ReportStatus) error {
	args := m.Called(ctx, reportID, status)
	return args.Error(0)
}

func (m *MockSink) RefreshAutoIgnoreCache(ctx context.Context) {
	m.Called(ctx)
}

type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, backend scoring.Backend, text string) (scoring.Result, error) {
	args := m.Called(ctx, backend, text)
	return args.Get(0).(scoring.Result), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyFlagged(ctx context.Context, run *autocheck.Run) {
	m.Called(ctx, run)
}
