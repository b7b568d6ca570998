package store

import (
	"context"

	"fintab-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateAccount(ctx context.Context, a *models.BankAccount) error {
	return wrap(s.with(ctx).Create(a).Error, "insert bank account", "bank account")
}

func (s *Store) GetAccount(ctx context.Context, businessID, id string) (*models.BankAccount, error) {
	var a models.BankAccount
	if err := s.with(ctx).First(&a, "business_id = ? AND id = ?", businessID, id).Error; err != nil {
		return nil, wrap(err, "select bank account", "bank account")
	}
	return &a, nil
}

// LockAccount reads the account FOR UPDATE. Must run inside Transaction.
func (s *Store) LockAccount(ctx context.Context, businessID, id string) (*models.BankAccount, error) {
	var a models.BankAccount
	err := s.with(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "business_id = ? AND id = ?", businessID, id).Error
	if err != nil {
		return nil, wrap(err, "lock bank account", "bank account")
	}
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context, businessID string) ([]models.BankAccount, error) {
	var out []models.BankAccount
	err := s.with(ctx).Where("business_id = ?", businessID).Order("name").Find(&out).Error
	return out, wrap(err, "select bank accounts", "bank account")
}

func (s *Store) UpdateBalance(ctx context.Context, id string, version int, balance decimal.Decimal) error {
	res := s.with(ctx).Model(&models.BankAccount{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{"balance": balance, "version": version + 1})
	if res.Error != nil {
		return wrap(res.Error, "update balance", "bank account")
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (s *Store) CreateBankTransaction(ctx context.Context, t *models.BankTransaction) error {
	return wrap(s.with(ctx).Create(t).Error, "insert ledger row", "ledger row")
}

func (s *Store) ListBankTransactions(ctx context.Context, businessID, accountID string) ([]models.BankTransaction, error) {
	var out []models.BankTransaction
	err := s.with(ctx).
		Where("business_id = ? AND account_id = ?", businessID, accountID).
		Order("created_at, id").
		Find(&out).Error
	return out, wrap(err, "select ledger", "ledger row")
}
