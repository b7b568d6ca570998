package checkout

import (
	"fintab-pos/internal/models"
	"fintab-pos/internal/pricing"

	"github.com/shopspring/decimal"
)

type LineView struct {
	ProductID    string          `json:"product_id"`
	VariantID    string          `json:"variant_id,omitempty"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

// View is the session as the register screen shows it.
type View struct {
	State         State           `json:"state"`
	Lines         []LineView      `json:"lines"`
	Totals        pricing.Totals  `json:"totals"`
	Selection     Selection       `json:"selection"`
	Snapshot      *Snapshot       `json:"snapshot,omitempty"`
	BankAccountID string          `json:"bank_account_id,omitempty"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	CashReceived  decimal.Decimal `json:"cash_received"`
	Change        decimal.Decimal `json:"change"`
	LastError     string          `json:"last_error,omitempty"`
	LastSale      *models.Sale    `json:"last_sale,omitempty"`
}

// View renders live totals for the cart alongside the frozen snapshot, if any.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]LineView, len(s.cart))
	for i, l := range s.cart {
		name := l.Product.Name
		if v, ok := l.Product.Variant(l.VariantID); ok {
			name = variantName(name, v)
		}
		lines[i] = LineView{
			ProductID:    l.Product.ID,
			VariantID:    l.VariantID,
			Name:         name,
			Quantity:     l.Quantity,
			UnitPrice:    pricing.UnitPrice(l),
			LineSubtotal: pricing.LineSubtotal(l),
		}
	}
	v := View{
		State:         s.state,
		Lines:         lines,
		Totals:        pricing.ComputeTotals(pricing.CartSubtotal(s.cart), s.sel.Discount, s.sel.TaxRate),
		Selection:     s.sel,
		BankAccountID: s.bankAccountID,
		ReceiptNumber: s.receiptNumber,
		CashReceived:  s.cashReceived,
		LastError:     s.lastErr,
		LastSale:      s.lastSale,
	}
	if s.snapshot != nil {
		snap := *s.snapshot
		v.Snapshot = &snap
		v.Change = pricing.Change(s.cashReceived, snap.AmountDue())
	}
	return v
}
