package store

import (
	"context"

	"fintab-pos/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func orderedTrail(db *gorm.DB) *gorm.DB {
	return db.Preload("Signatures", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq")
	}).Preload("AuditLog", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq")
	})
}

func (s *Store) CreateApproval(ctx context.Context, r *models.ApprovalRecord) error {
	// the first signature and audit entry are inserted with the record
	return wrap(s.with(ctx).Create(r).Error, "insert approval", "approval record")
}

func (s *Store) GetApproval(ctx context.Context, businessID, id string) (*models.ApprovalRecord, error) {
	var r models.ApprovalRecord
	err := orderedTrail(s.with(ctx)).First(&r, "business_id = ? AND id = ?", businessID, id).Error
	if err != nil {
		return nil, wrap(err, "select approval", "approval record")
	}
	return &r, nil
}

// LockApproval reads the record FOR UPDATE with its trail. Must run inside Transaction.
func (s *Store) LockApproval(ctx context.Context, businessID, id string) (*models.ApprovalRecord, error) {
	var r models.ApprovalRecord
	err := orderedTrail(s.with(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).
		First(&r, "business_id = ? AND id = ?", businessID, id).Error
	if err != nil {
		return nil, wrap(err, "lock approval", "approval record")
	}
	return &r, nil
}

func (s *Store) ListApprovals(ctx context.Context, businessID, kind, status string) ([]models.ApprovalRecord, error) {
	q := orderedTrail(s.with(ctx)).Where("business_id = ?", businessID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.ApprovalRecord
	err := q.Order("created_at desc").Find(&out).Error
	return out, wrap(err, "select approvals", "approval record")
}

func (s *Store) AppendSignature(ctx context.Context, sig *models.ApprovalSignature) error {
	return wrap(s.with(ctx).Create(sig).Error, "insert signature", "signature")
}

func (s *Store) AppendAuditEntry(ctx context.Context, e *models.ApprovalAuditEntry) error {
	return wrap(s.with(ctx).Create(e).Error, "insert audit entry", "audit entry")
}

func (s *Store) UpdateApprovalStatus(ctx context.Context, id string, version int, status string) error {
	res := s.with(ctx).Model(&models.ApprovalRecord{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{"status": status, "version": version + 1})
	if res.Error != nil {
		return wrap(res.Error, "update approval", "approval record")
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}
