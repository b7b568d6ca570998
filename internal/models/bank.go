package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger transaction types.
const (
	TxDeposit     = "deposit"
	TxTransferIn  = "transfer_in"
	TxTransferOut = "transfer_out"
	TxExpense     = "expense"
)

// BankAccount - running balance; Version is bumped on every posting
type BankAccount struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	BusinessID    string          `gorm:"size:36;index" json:"business_id"`
	Name          string          `gorm:"size:120" json:"name"`
	BankName      string          `gorm:"size:120" json:"bank_name"`
	AccountNumber string          `gorm:"size:64" json:"account_number"`
	Balance       decimal.Decimal `gorm:"type:decimal(18,4)" json:"balance"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BankTransaction - one row per balance mutation, amount is signed
type BankTransaction struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	BusinessID   string          `gorm:"size:36;index" json:"business_id"`
	AccountID    string          `gorm:"size:36;index" json:"account_id"`
	Type         string          `gorm:"size:20" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4)" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(18,4)" json:"balance_after"`
	TransferID   string          `gorm:"size:36;index" json:"transfer_id,omitempty"` // links the two legs of a transfer
	Reference    string          `gorm:"size:36" json:"reference,omitempty"`
	ActorID      string          `gorm:"size:64" json:"actor_id"`
	Note         string          `gorm:"type:text" json:"note"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (BankTransaction) TableName() string { return "unified_ledger" }
