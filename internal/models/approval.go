package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Approval kinds.
const (
	KindCashCount      = "cash_count"
	KindGoodsReceiving = "goods_receiving"
	KindInventoryCheck = "inventory_check"
	KindExpense        = "expense"
)

// ApprovalRecord - a reviewed business event that needs sequential sign-off
type ApprovalRecord struct {
	ID          string               `gorm:"primaryKey;size:36" json:"id"`
	BusinessID  string               `gorm:"size:36;index:idx_approval_lookup" json:"business_id"`
	Kind        string               `gorm:"size:40;index:idx_approval_lookup" json:"kind"`
	Status      string               `gorm:"size:40;index:idx_approval_lookup" json:"status"`
	Payload     ApprovalPayload      `gorm:"serializer:json" json:"payload"`
	Version     int                  `json:"version"`
	SubmittedBy string               `gorm:"size:64" json:"submitted_by"`
	Signatures  []ApprovalSignature  `gorm:"foreignKey:RecordID" json:"signatures"`
	AuditLog    []ApprovalAuditEntry `gorm:"foreignKey:RecordID" json:"audit_log"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (ApprovalRecord) TableName() string { return "approval_requests" }

// ApprovalSignature - one per stage, never removed
type ApprovalSignature struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	RecordID  string    `gorm:"size:36;uniqueIndex:idx_signature_stage" json:"record_id"`
	Stage     string    `gorm:"size:40;uniqueIndex:idx_signature_stage" json:"stage"`
	Seq       int       `json:"seq"`
	ActorID   string    `gorm:"size:64" json:"actor_id"`
	ActorName string    `gorm:"size:120" json:"actor_name"`
	Note      string    `gorm:"type:text" json:"note"`
	SignedAt  time.Time `json:"signed_at"`
}

// ApprovalAuditEntry - append-only, one per transition
type ApprovalAuditEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	RecordID  string    `gorm:"size:36;index" json:"record_id"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `gorm:"size:40" json:"status"`
	ActorID   string    `gorm:"size:64" json:"actor_id"`
	ActorName string    `gorm:"size:120" json:"actor_name"`
	Note      string    `gorm:"type:text" json:"note"`
}

// Signature returns the signature recorded for a stage, if any.
func (r ApprovalRecord) Signature(stage string) (ApprovalSignature, bool) {
	for _, s := range r.Signatures {
		if s.Stage == stage {
			return s, true
		}
	}
	return ApprovalSignature{}, false
}

// SignatureMap keys the signatures by stage name.
func (r ApprovalRecord) SignatureMap() map[string]ApprovalSignature {
	out := make(map[string]ApprovalSignature, len(r.Signatures))
	for _, s := range r.Signatures {
		out[s.Stage] = s
	}
	return out
}

// LastSignature is the signature with the highest sequence number.
func (r ApprovalRecord) LastSignature() (ApprovalSignature, bool) {
	var last ApprovalSignature
	found := false
	for _, s := range r.Signatures {
		if !found || s.Seq > last.Seq {
			last, found = s, true
		}
	}
	return last, found
}

// ApprovalPayload is a tagged union: exactly one kind-specific field is set, matching the record kind.
type ApprovalPayload struct {
	Date           time.Time              `json:"date"`
	CashCount      *CashCountPayload      `json:"cash_count,omitempty"`
	GoodsReceipt   *GoodsReceiptPayload   `json:"goods_receipt,omitempty"`
	InventoryCheck *InventoryCheckPayload `json:"inventory_check,omitempty"`
	Expense        *ExpensePayload        `json:"expense,omitempty"`
}

type CashCountPayload struct {
	Expected decimal.Decimal  `json:"expected"`
	Counted  *decimal.Decimal `json:"counted"`
	Note     string           `json:"note"`
}

// Difference is counted minus expected; over is positive, short is negative.
func (c CashCountPayload) Difference() decimal.Decimal {
	if c.Counted == nil {
		return decimal.Zero
	}
	return c.Counted.Sub(c.Expected)
}

type GoodsReceiptPayload struct {
	Supplier  string      `json:"supplier"`
	Reference string      `json:"reference"`
	Lines     []CountLine `json:"lines"`
}

type InventoryCheckPayload struct {
	WeekOf time.Time   `json:"week_of"`
	Lines  []CountLine `json:"lines"`
}

// CountLine is one audited line. For goods receiving Counted is the received quantity.
type CountLine struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Name      string `json:"name"`
	Expected  int    `json:"expected"`
	Counted   *int   `json:"counted"`
	Note      string `json:"note"`
}

// Difference is counted minus expected. The second result is false when nothing was counted.
func (l CountLine) Difference() (int, bool) {
	if l.Counted == nil {
		return 0, false
	}
	return *l.Counted - l.Expected, true
}

type ExpensePayload struct {
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	BankAccountID string          `json:"bank_account_id,omitempty"` // paid from this account once accepted
}
