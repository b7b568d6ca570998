package store

import (
	"context"
	"time"

	"fintab-pos/internal/models"

	"gorm.io/gorm/clause"
)

func (s *Store) CreateBusiness(ctx context.Context, b *models.Business) error {
	return wrap(s.with(ctx).Create(b).Error, "insert business", "business")
}

func (s *Store) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	var b models.Business
	if err := s.with(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "select business", "business")
	}
	return &b, nil
}

func (s *Store) ListBusinessesForUser(ctx context.Context, userID string) ([]models.Business, error) {
	var out []models.Business
	err := s.with(ctx).
		Joins("JOIN memberships ON memberships.business_id = businesses.id").
		Where("memberships.user_id = ?", userID).
		Order("businesses.created_at").
		Find(&out).Error
	return out, wrap(err, "select businesses", "business")
}

func (s *Store) UpdateBusinessSettings(ctx context.Context, id string, settings models.BusinessSettings) error {
	b := models.Business{ID: id, Settings: settings}
	return wrap(s.with(ctx).Model(&b).Select("settings").Updates(&b).Error, "update business", "business")
}

func (s *Store) CreateMembership(ctx context.Context, m *models.Membership) error {
	return wrap(s.with(ctx).Create(m).Error, "insert membership", "membership")
}

func (s *Store) GetMembership(ctx context.Context, businessID, userID string) (*models.Membership, error) {
	var m models.Membership
	if err := s.with(ctx).First(&m, "business_id = ? AND user_id = ?", businessID, userID).Error; err != nil {
		return nil, wrap(err, "select membership", "membership")
	}
	return &m, nil
}

func (s *Store) ListMemberships(ctx context.Context, businessID string) ([]models.Membership, error) {
	var out []models.Membership
	err := s.with(ctx).Where("business_id = ?", businessID).Order("created_at").Find(&out).Error
	return out, wrap(err, "select memberships", "membership")
}

func (s *Store) UpdateMembership(ctx context.Context, m *models.Membership) error {
	err := s.with(ctx).Model(m).Select("role", "capabilities", "assignments").Updates(m).Error
	return wrap(err, "update membership", "membership")
}

func (s *Store) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	return wrap(s.with(ctx).Create(inv).Error, "insert invitation", "invitation")
}

func (s *Store) LockInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.with(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err, "select invitation", "invitation")
	}
	return &inv, nil
}

func (s *Store) ConsumeInvitation(ctx context.Context, id, userID string, at time.Time) error {
	res := s.with(ctx).Model(&models.Invitation{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Updates(map[string]interface{}{"consumed_at": at, "consumed_by": userID})
	if res.Error != nil {
		return wrap(res.Error, "update invitation", "invitation")
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}
