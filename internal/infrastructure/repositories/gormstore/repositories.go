package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
	"experiencehub/pkg/tracing"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetIdentity loads the user and, for organizations and students, the
// profile row keyed by the user. A missing profile leaves the profile id empty.
func (r *UserRepository) GetIdentity(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	db := r.db.WithContext(ctx)

	var user UserModel
	if err := db.Where("id = ?", string(id)).First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}

	identity := &domain.Identity{
		UserID: domain.UserID(user.ID),
		Email:  user.Email,
		Role:   domain.UserRole(user.Role),
	}

	switch identity.Role {
	case domain.RoleOrganization:
		var org OrganizationModel
		err := db.Where("user_id = ?", user.ID).Take(&org).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load organization: %w", err)
		}
		identity.OrganizationID = domain.OrganizationID(org.ID)
	case domain.RoleStudent:
		var student StudentModel
		err := db.Where("user_id = ?", user.ID).Take(&student).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load student: %w", err)
		}
		identity.StudentID = domain.StudentID(student.ID)
	}
	return identity, nil
}

type ExperienceRepository struct {
	db *gorm.DB
}

func NewExperienceRepository(db *gorm.DB) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

func (r *ExperienceRepository) GetByID(ctx context.Context, id domain.ExperienceID) (*domain.Experience, error) {
	var row experienceRow
	err := r.db.WithContext(ctx).
		Table("experiences").
		Select("experiences.*, students.user_id AS student_user_id").
		Joins("LEFT JOIN students ON students.id = experiences.student_id").
		Where("experiences.id = ?", string(id)).
		Take(&row).Error
	if err != nil {
		return nil, translate(err, "experience")
	}
	return experienceFromRow(&row), nil
}

func (r *ExperienceRepository) UpdateVerification(ctx context.Context, update domain.VerificationUpdate) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "update", "experiences")
	defer span.End()

	verifiedBy := string(update.VerifiedBy)
	res := r.db.WithContext(ctx).
		Model(&ExperienceModel{}).
		Where("id = ? AND organization_id = ?", string(update.ExperienceID), string(update.OrganizationID)).
		Updates(map[string]interface{}{
			"status":            string(update.Status),
			"verified_by":       &verifiedBy,
			"verified_at":       update.At,
			"verification_note": update.Note,
			"updated_at":        update.At,
		})
	if res.Error != nil {
		return fmt.Errorf("update experience: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type PortfolioRepository struct {
	db *gorm.DB
}

func NewPortfolioRepository(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func (r *PortfolioRepository) GetOwner(ctx context.Context, id domain.PortfolioID) (domain.UserID, error) {
	var owner ownerRow
	err := r.db.WithContext(ctx).
		Table("portfolios").
		Select("students.user_id AS user_id").
		Joins("JOIN students ON students.id = portfolios.student_id").
		Where("portfolios.id = ?", string(id)).
		Take(&owner).Error
	if err != nil {
		return "", translate(err, "portfolio")
	}
	if owner.UserID == "" {
		return "", domain.ErrNotFound
	}
	return domain.UserID(owner.UserID), nil
}

func (r *PortfolioRepository) RecordView(ctx context.Context, view *domain.PortfolioView) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "insert", "portfolio_views")
	defer span.End()

	if err := r.db.WithContext(ctx).Create(portfolioViewToModel(view)).Error; err != nil {
		return fmt.Errorf("record portfolio view: %w", err)
	}
	return nil
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "insert", "notifications")
	defer span.End()

	m, err := notificationToModel(n)
	if err != nil {
		return fmt.Errorf("%w: metadata: %v", domain.ErrInvalidPayload, err)
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID domain.UserID, ids []domain.NotificationID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, span := tracing.TraceDatabaseOperation(ctx, "update", "notifications")
	defer span.End()

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	res := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("user_id = ? AND id IN ? AND is_read = ?", string(userID), raw, false).
		Updates(map[string]interface{}{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID domain.UserID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("user_id = ? AND is_read = ?", string(userID), false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID domain.UserID, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", string(userID)).
		Order("created_at DESC, id DESC")
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var rows []*NotificationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]*domain.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, notificationFromModel(m))
	}
	return out, nil
}

func translate(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

var (
	_ ports.UserRepository         = (*UserRepository)(nil)
	_ ports.ExperienceRepository   = (*ExperienceRepository)(nil)
	_ ports.PortfolioRepository    = (*PortfolioRepository)(nil)
	_ ports.NotificationRepository = (*NotificationRepository)(nil)
)
