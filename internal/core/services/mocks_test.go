package services

import (
	"context"
	"time"

	"experiencehub/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetIdentity(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

type MockExperienceRepository struct {
	mock.Mock
}

func (m *MockExperienceRepository) GetByID(ctx context.Context, id domain.ExperienceID) (*domain.Experience, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Experience), args.Error(1)
}

func (m *MockExperienceRepository) UpdateVerification(ctx context.Context, update domain.VerificationUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) GetOwner(ctx context.Context, id domain.PortfolioID) (domain.UserID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.UserID), args.Error(1)
}

func (m *MockPortfolioRepository) RecordView(ctx context.Context, view *domain.PortfolioView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID domain.UserID, ids []domain.NotificationID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, ids, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID domain.UserID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID domain.UserID, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) SendToUser(ctx context.Context, userID domain.UserID, event string, payload interface{}) error {
	return m.Called(ctx, userID, event, payload).Error(0)
}

func (m *MockBroadcaster) SendToOrganization(ctx context.Context, orgID domain.OrganizationID, event string, payload interface{}) error {
	return m.Called(ctx, orgID, event, payload).Error(0)
}

func (m *MockBroadcaster) SendToStudent(ctx context.Context, studentID domain.StudentID, event string, payload interface{}) error {
	return m.Called(ctx, studentID, event, payload).Error(0)
}

func (m *MockBroadcaster) SendToAll(ctx context.Context, event string, payload interface{}) error {
	return m.Called(ctx, event, payload).Error(0)
}

func (m *MockBroadcaster) SendToRole(ctx context.Context, role domain.UserRole, event string, payload interface{}) error {
	return m.Called(ctx, role, event, payload).Error(0)
}

func (m *MockBroadcaster) SendToRoom(ctx context.Context, room domain.RoomName, event string, payload interface{}, except domain.ConnID) error {
	return m.Called(ctx, room, event, payload, except).Error(0)
}
