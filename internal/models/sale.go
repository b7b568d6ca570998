package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout.
const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentBankTransfer = "bank_transfer"
)

// Sale statuses.
const (
	SaleCompleted               = "completed"
	SalePaid                    = "paid"
	SaleBankVerified            = "bank_verified"
	SalePendingBankVerification = "pending_bank_verification"
	SaleRejected                = "rejected"
)

// FinalizedSaleStatuses are the statuses counted in revenue.
var FinalizedSaleStatuses = []string{SaleCompleted, SalePaid, SaleBankVerified}

func IsFinalizedSaleStatus(status string) bool {
	for _, s := range FinalizedSaleStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Sale - the transaction header, immutable once created
type Sale struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	BusinessID      string          `gorm:"size:36;index" json:"business_id"`
	CustomerID      string          `gorm:"size:36;index" json:"customer_id"`
	StaffID         string          `gorm:"size:64;index" json:"staff_id"` // credited with the commission
	CashierID       string          `gorm:"size:64" json:"cashier_id"`     // who processed it
	Items           []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4)" json:"subtotal"`
	Discount        decimal.Decimal `gorm:"type:decimal(18,4)" json:"discount"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(9,4)" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,4)" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4)" json:"total"`
	CommissionTotal decimal.Decimal `gorm:"type:decimal(18,4)" json:"commission_total"`
	PaymentMethod   string          `gorm:"size:20" json:"payment_method"`
	Status          string          `gorm:"size:40;index" json:"status"`
	CashReceived    decimal.Decimal `gorm:"type:decimal(18,4)" json:"cash_received"`
	Change          decimal.Decimal `gorm:"type:decimal(18,4)" json:"change"`
	BankAccountID   string          `gorm:"size:36" json:"bank_account_id,omitempty"`
	ReceiptNumber   string          `gorm:"size:80" json:"receipt_number,omitempty"`
	SaleTime        time.Time       `gorm:"index" json:"sale_time"`
}

// SaleItem - snapshot of one cart line at the time of sale
type SaleItem struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	SaleID         string          `gorm:"size:36;index" json:"sale_id"`
	ProductID      string          `gorm:"size:36;index" json:"product_id"`
	VariantID      string          `gorm:"size:36" json:"variant_id,omitempty"`
	Name           string          `gorm:"size:160" json:"name"`
	Quantity       int             `json:"quantity"`
	PriceAtSale    decimal.Decimal `gorm:"type:decimal(18,4)" json:"price_at_sale"`
	LineSubtotal   decimal.Decimal `gorm:"type:decimal(18,4)" json:"line_subtotal"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(9,4)" json:"commission_rate"`
	Commission     decimal.Decimal `gorm:"type:decimal(18,4)" json:"commission"`
}
