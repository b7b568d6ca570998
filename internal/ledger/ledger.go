// Package ledger keeps bank account balances and the unified ledger of signed
// postings. A balance only changes together with exactly one ledger row.
package ledger

import (
	"context"
	"sort"
	"strings"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/metrics"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"
	"fintab-pos/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount     = apperr.New(apperr.KindValidation, "amount must be greater than zero")
	ErrNegativeOpening   = apperr.New(apperr.KindValidation, "opening balance cannot be negative")
	ErrAccountName       = apperr.New(apperr.KindValidation, "account name is required")
	ErrSameAccount       = apperr.New(apperr.KindValidation, "source and destination accounts must differ")
	ErrInsufficientFunds = apperr.New(apperr.KindValidation, "insufficient balance")
	ErrNotAllowed        = apperr.New(apperr.KindAuthorization, "you are not allowed to manage bank accounts")
)

type Service struct {
	repo store.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo store.Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type AccountInput struct {
	Name           string          `json:"name"`
	BankName       string          `json:"bank_name"`
	AccountNumber  string          `json:"account_number"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Posting is one signed balance mutation.
type Posting struct {
	BusinessID string
	AccountID  string
	Type       string
	Amount     decimal.Decimal
	TransferID string
	Reference  string
	ActorID    string
	Note       string
	At         time.Time
}

func (s *Service) CreateAccount(ctx context.Context, actor models.Actor, in AccountInput) (*models.BankAccount, error) {
	if !actor.Can(models.CapManageBank) {
		return nil, ErrNotAllowed
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrAccountName
	}
	if in.OpeningBalance.IsNegative() {
		return nil, ErrNegativeOpening
	}

	now := s.now()
	acct := &models.BankAccount{
		ID:            utils.NewID(),
		BusinessID:    actor.BusinessID,
		Name:          strings.TrimSpace(in.Name),
		BankName:      in.BankName,
		AccountNumber: in.AccountNumber,
		Balance:       decimal.Zero,
		CreatedAt:     now,
	}
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		if err := tx.CreateAccount(ctx, acct); err != nil {
			return err
		}
		if !in.OpeningBalance.IsPositive() {
			return nil
		}
		_, err := s.Post(ctx, tx, Posting{
			BusinessID: acct.BusinessID,
			AccountID:  acct.ID,
			Type:       models.TxDeposit,
			Amount:     in.OpeningBalance,
			ActorID:    actor.UserID,
			Note:       "opening balance",
			At:         now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("bank account created", zap.String("account_id", acct.ID), zap.String("business_id", acct.BusinessID))
	return s.repo.GetAccount(ctx, acct.BusinessID, acct.ID)
}

// Post applies one posting inside tx. The account row is locked and its
// version checked, so concurrent posters cannot lose an update.
func (s *Service) Post(ctx context.Context, tx store.Repository, p Posting) (*models.BankTransaction, error) {
	acct, err := tx.LockAccount(ctx, p.BusinessID, p.AccountID)
	if err != nil {
		return nil, err
	}
	balance := acct.Balance.Add(p.Amount)
	if balance.IsNegative() {
		return nil, ErrInsufficientFunds
	}
	if err := tx.UpdateBalance(ctx, acct.ID, acct.Version, balance); err != nil {
		return nil, err
	}
	if p.At.IsZero() {
		p.At = s.now()
	}
	row := &models.BankTransaction{
		ID:           utils.NewID(),
		BusinessID:   p.BusinessID,
		AccountID:    acct.ID,
		Type:         p.Type,
		Amount:       p.Amount,
		BalanceAfter: balance,
		TransferID:   p.TransferID,
		Reference:    p.Reference,
		ActorID:      p.ActorID,
		Note:         p.Note,
		CreatedAt:    p.At,
	}
	if err := tx.CreateBankTransaction(ctx, row); err != nil {
		return nil, err
	}
	metrics.LedgerPostings.WithLabelValues(p.Type).Inc()
	return row, nil
}

func (s *Service) Deposit(ctx context.Context, actor models.Actor, accountID string, amount decimal.Decimal, note string) (*models.BankTransaction, error) {
	if !actor.Can(models.CapManageBank) {
		return nil, ErrNotAllowed
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var row *models.BankTransaction
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		row, err = s.Post(ctx, tx, Posting{
			BusinessID: actor.BusinessID,
			AccountID:  accountID,
			Type:       models.TxDeposit,
			Amount:     amount,
			ActorID:    actor.UserID,
			Note:       note,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("deposit posted", zap.String("account_id", accountID), zap.String("amount", amount.String()))
	return row, nil
}

// Transfer moves amount between two accounts of the actor's business. Both
// legs share a transfer id and timestamp; they are written or neither is.
func (s *Service) Transfer(ctx context.Context, actor models.Actor, fromID, toID string, amount decimal.Decimal, note string) ([]models.BankTransaction, error) {
	if !actor.Can(models.CapManageBank) {
		return nil, ErrNotAllowed
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if fromID == toID {
		return nil, ErrSameAccount
	}

	transferID := utils.NewID()
	at := s.now()
	var legs []models.BankTransaction
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		// fixed lock order so two opposite transfers cannot deadlock
		ids := []string{fromID, toID}
		sort.Strings(ids)
		for _, id := range ids {
			if _, err := tx.LockAccount(ctx, actor.BusinessID, id); err != nil {
				return err
			}
		}
		out, err := s.Post(ctx, tx, Posting{
			BusinessID: actor.BusinessID,
			AccountID:  fromID,
			Type:       models.TxTransferOut,
			Amount:     amount.Neg(),
			TransferID: transferID,
			Reference:  toID,
			ActorID:    actor.UserID,
			Note:       note,
			At:         at,
		})
		if err != nil {
			return err
		}
		in, err := s.Post(ctx, tx, Posting{
			BusinessID: actor.BusinessID,
			AccountID:  toID,
			Type:       models.TxTransferIn,
			Amount:     amount,
			TransferID: transferID,
			Reference:  fromID,
			ActorID:    actor.UserID,
			Note:       note,
			At:         at,
		})
		if err != nil {
			return err
		}
		legs = []models.BankTransaction{*out, *in}
		return nil
	})
	if err != nil {
		s.log.Warn("transfer rejected", zap.String("from", fromID), zap.String("to", toID), zap.Error(err))
		return nil, err
	}
	s.log.Info("transfer posted", zap.String("transfer_id", transferID), zap.String("amount", amount.String()))
	return legs, nil
}

type Reconciliation struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Posted    decimal.Decimal `json:"posted"`
	Rows      int             `json:"rows"`
	Balanced  bool            `json:"balanced"`
}

// Reconcile compares the stored balance with the sum of the account's ledger rows.
func (s *Service) Reconcile(ctx context.Context, businessID, accountID string) (*Reconciliation, error) {
	acct, err := s.repo.GetAccount(ctx, businessID, accountID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListBankTransactions(ctx, businessID, accountID)
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	rec := &Reconciliation{
		AccountID: acct.ID,
		Balance:   acct.Balance,
		Posted:    sum,
		Rows:      len(rows),
		Balanced:  sum.Equal(acct.Balance),
	}
	if !rec.Balanced {
		s.log.Error("ledger out of balance",
			zap.String("account_id", acct.ID),
			zap.String("balance", acct.Balance.String()),
			zap.String("posted", sum.String()))
	}
	return rec, nil
}

func (s *Service) Accounts(ctx context.Context, businessID string) ([]models.BankAccount, error) {
	return s.repo.ListAccounts(ctx, businessID)
}

func (s *Service) Account(ctx context.Context, businessID, id string) (*models.BankAccount, error) {
	return s.repo.GetAccount(ctx, businessID, id)
}

func (s *Service) Transactions(ctx context.Context, businessID, accountID string) ([]models.BankTransaction, error) {
	if _, err := s.repo.GetAccount(ctx, businessID, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListBankTransactions(ctx, businessID, accountID)
}
