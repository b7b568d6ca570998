// Package checkout holds the per-cashier checkout session: the cart, the
// selections and the state machine that freezes a snapshot, collects payment
// details and hands one complete Sale to a Recorder.
package checkout

import (
	"context"
	"sync"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/models"
	"fintab-pos/internal/pricing"
	"fintab-pos/internal/utils"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateIdle                State = "idle"
	StateAwaitingBankDetails State = "awaiting_bank_details"
	StatePendingConfirmation State = "pending_confirmation"
	StateProcessing          State = "processing"
	StateCompleted           State = "completed"
	StateError               State = "error"
)

// paymentCapability is the capability each payment method requires.
var paymentCapability = map[string]string{
	models.PaymentCash:         models.CapCashSale,
	models.PaymentCard:         models.CapCardSale,
	models.PaymentBankTransfer: models.CapBankTransfer,
}

// Recorder persists a finished sale. It must store all of it or nothing.
type Recorder interface {
	Record(ctx context.Context, sale *models.Sale) error
}

type Selection struct {
	CustomerID    string          `json:"customer_id"`
	StaffID       string          `json:"staff_id"`
	PaymentMethod string          `json:"payment_method"`
	Discount      decimal.Decimal `json:"discount"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
}

// Snapshot is frozen by Begin; later cart edits do not touch it.
type Snapshot struct {
	Lines      []pricing.Line    `json:"-"`
	Items      []models.SaleItem `json:"items"`
	Totals     pricing.Totals    `json:"totals"`
	Commission decimal.Decimal   `json:"commission"`
	Selection  Selection         `json:"selection"`
	FrozenAt   time.Time         `json:"frozen_at"`
}

// AmountDue is the rounded total the customer pays.
func (s *Snapshot) AmountDue() decimal.Decimal {
	return pricing.Round(s.Totals.Total)
}

type Session struct {
	mu sync.Mutex

	businessID string
	cashierID  string
	defaultTax decimal.Decimal

	state    State
	cart     []pricing.Line
	sel      Selection
	snapshot *Snapshot

	bankAccountID string
	receiptNumber string
	cashReceived  decimal.Decimal

	lastErr  string
	lastSale *models.Sale
}

func NewSession(businessID, cashierID string, defaultTax decimal.Decimal) *Session {
	return &Session{
		businessID: businessID,
		cashierID:  cashierID,
		defaultTax: defaultTax,
		state:      StateIdle,
		sel:        Selection{TaxRate: defaultTax},
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// editable is called with the lock held.
func (s *Session) editable() error {
	if s.state == StateProcessing {
		return ErrInProgress
	}
	if s.state == StateCompleted {
		s.state = StateIdle
		s.lastSale = nil
	}
	return nil
}

// SetQuantity sets the quantity of a product (or one of its variants); 0 removes the line.
func (s *Session) SetQuantity(p models.Product, variantID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if variantID != "" {
		if _, ok := p.Variant(variantID); !ok {
			return ErrUnknownVariant
		}
	}
	if qty > p.Available(variantID) {
		return ErrNotEnoughStock
	}

	for i, l := range s.cart {
		if l.Product.ID == p.ID && l.VariantID == variantID {
			if qty == 0 {
				s.cart = append(s.cart[:i:i], s.cart[i+1:]...)
				return nil
			}
			s.cart[i] = pricing.Line{Product: p, VariantID: variantID, Quantity: qty}
			return nil
		}
	}
	if qty > 0 {
		s.cart = append(s.cart, pricing.Line{Product: p, VariantID: variantID, Quantity: qty})
	}
	return nil
}

// AddOne increments the line for p by one unit.
func (s *Session) AddOne(p models.Product, variantID string) error {
	s.mu.Lock()
	current := 0
	for _, l := range s.cart {
		if l.Product.ID == p.ID && l.VariantID == variantID {
			current = l.Quantity
		}
	}
	s.mu.Unlock()
	return s.SetQuantity(p, variantID, current+1)
}

func (s *Session) SelectCustomer(id string) error {
	return s.updateSelection(func(sel *Selection) { sel.CustomerID = id })
}

func (s *Session) SelectStaff(id string) error {
	return s.updateSelection(func(sel *Selection) { sel.StaffID = id })
}

func (s *Session) SelectPaymentMethod(method string) error {
	if _, ok := paymentCapability[method]; !ok && method != "" {
		return ErrUnknownPayment
	}
	return s.updateSelection(func(sel *Selection) { sel.PaymentMethod = method })
}

// SetDiscount stores the discount the actor may apply; without the capability it becomes zero.
func (s *Session) SetDiscount(actor models.Actor, amount decimal.Decimal) error {
	applied := pricing.ApplicableDiscount(actor, amount)
	return s.updateSelection(func(sel *Selection) { sel.Discount = applied })
}

func (s *Session) SetTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return s.updateSelection(func(sel *Selection) { sel.TaxRate = rate })
}

func (s *Session) updateSelection(fn func(*Selection)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	fn(&s.sel)
	return nil
}

// Begin validates the cart and selection and freezes the snapshot.
func (s *Session) Begin(actor models.Actor) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateProcessing:
		return nil, ErrInProgress
	case StateIdle, StateCompleted:
	default:
		return nil, ErrWrongState
	}

	if len(s.cart) == 0 {
		return nil, ErrEmptyCart
	}
	if s.sel.CustomerID == "" {
		return nil, ErrNoCustomer
	}
	if s.sel.StaffID == "" {
		return nil, ErrNoStaff
	}
	if s.sel.PaymentMethod == "" {
		return nil, ErrNoPaymentMethod
	}
	if s.sel.Discount.IsPositive() && !actor.Can(models.CapDiscount) {
		return nil, ErrDiscountNotAllowed
	}
	if !actor.Can(paymentCapability[s.sel.PaymentMethod]) {
		return nil, ErrPaymentNotAllowed
	}

	lines := make([]pricing.Line, len(s.cart))
	copy(lines, s.cart)

	subtotal := pricing.CartSubtotal(lines)
	totals := pricing.ComputeTotals(subtotal, s.sel.Discount, s.sel.TaxRate)
	commission, perLine := pricing.Commission(lines, subtotal, totals.Discount)

	items := make([]models.SaleItem, len(lines))
	for i, l := range lines {
		name := l.Product.Name
		if v, ok := l.Product.Variant(l.VariantID); ok {
			name = variantName(name, v)
		}
		items[i] = models.SaleItem{
			ProductID:      l.Product.ID,
			VariantID:      l.VariantID,
			Name:           name,
			Quantity:       l.Quantity,
			PriceAtSale:    pricing.UnitPrice(l),
			LineSubtotal:   perLine[i].LineSubtotal,
			CommissionRate: perLine[i].Rate,
			Commission:     pricing.Round(perLine[i].Commission),
		}
	}

	s.snapshot = &Snapshot{
		Lines:      lines,
		Items:      items,
		Totals:     totals,
		Commission: commission,
		Selection:  s.sel,
		FrozenAt:   time.Now().UTC(),
	}
	s.lastSale = nil
	s.cashReceived = decimal.Zero
	if s.sel.PaymentMethod == models.PaymentBankTransfer {
		s.state = StateAwaitingBankDetails
	} else {
		s.state = StatePendingConfirmation
	}
	return s.snapshot, nil
}

func variantName(base string, v models.ProductVariant) string {
	for _, a := range v.Attributes {
		base += " / " + a.Value
	}
	return base
}

// ProvideBankDetails completes the bank transfer sub-flow.
func (s *Session) ProvideBankDetails(account *models.BankAccount, receiptNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingBankDetails {
		return ErrWrongState
	}
	if account == nil || account.BusinessID != s.businessID || receiptNumber == "" {
		return ErrBankDetailsRequired
	}
	s.bankAccountID = account.ID
	s.receiptNumber = receiptNumber
	s.state = StatePendingConfirmation
	return nil
}

// EnterCashReceived records the tendered cash and returns the change due.
func (s *Session) EnterCashReceived(amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePendingConfirmation || s.snapshot.Selection.PaymentMethod != models.PaymentCash {
		return decimal.Zero, ErrWrongState
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	s.cashReceived = amount
	return pricing.Change(amount, s.snapshot.AmountDue()), nil
}

// Confirm hands the finished sale to rec. A second Confirm while the first
// is still recording returns ErrInProgress and does nothing.
func (s *Session) Confirm(ctx context.Context, actor models.Actor, rec Recorder) (*models.Sale, error) {
	s.mu.Lock()
	if s.state == StateProcessing {
		s.mu.Unlock()
		return nil, ErrInProgress
	}
	if s.state != StatePendingConfirmation {
		s.mu.Unlock()
		return nil, ErrWrongState
	}
	snap := s.snapshot
	due := snap.AmountDue()
	if snap.Selection.PaymentMethod == models.PaymentCash && s.cashReceived.LessThan(due) {
		s.mu.Unlock()
		return nil, ErrInsufficientCash
	}
	sale := s.buildSale(actor)
	s.state = StateProcessing
	s.mu.Unlock()

	err := rec.Record(ctx, sale)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.lastErr = apperr.Message(err)
		return nil, err
	}
	s.cart = nil
	s.sel = Selection{TaxRate: s.defaultTax}
	s.snapshot = nil
	s.bankAccountID, s.receiptNumber = "", ""
	s.cashReceived = decimal.Zero
	s.lastErr = ""
	s.lastSale = sale
	s.state = StateCompleted
	return sale, nil
}

// buildSale is called with the lock held.
func (s *Session) buildSale(actor models.Actor) *models.Sale {
	snap := s.snapshot
	saleID := utils.NewID()
	items := make([]models.SaleItem, len(snap.Items))
	for i, it := range snap.Items {
		it.ID = utils.NewID()
		it.SaleID = saleID
		items[i] = it
	}

	sale := &models.Sale{
		ID:              saleID,
		BusinessID:      s.businessID,
		CustomerID:      snap.Selection.CustomerID,
		StaffID:         snap.Selection.StaffID,
		CashierID:       actor.UserID,
		Items:           items,
		Subtotal:        pricing.Round(snap.Totals.Subtotal),
		Discount:        pricing.Round(snap.Totals.Discount),
		TaxRate:         snap.Totals.TaxRate,
		TaxAmount:       pricing.Round(snap.Totals.Tax),
		Total:           snap.AmountDue(),
		CommissionTotal: pricing.Round(snap.Commission),
		PaymentMethod:   snap.Selection.PaymentMethod,
		Status:          models.SaleCompleted,
		SaleTime:        time.Now().UTC(),
	}
	switch snap.Selection.PaymentMethod {
	case models.PaymentBankTransfer:
		sale.Status = models.SalePendingBankVerification
		sale.BankAccountID = s.bankAccountID
		sale.ReceiptNumber = s.receiptNumber
	case models.PaymentCash:
		sale.CashReceived = s.cashReceived
		sale.Change = pricing.Change(s.cashReceived, sale.Total)
	}
	return sale
}

// Cancel drops the snapshot and returns to idle; the cart is kept.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateProcessing:
		return ErrInProgress
	case StateAwaitingBankDetails, StatePendingConfirmation:
		s.dropSnapshot()
		s.state = StateIdle
	}
	return nil
}

// Resume recovers from a failed confirmation, keeping the cart and selection.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateError {
		return ErrWrongState
	}
	s.dropSnapshot()
	s.lastErr = ""
	s.state = StateIdle
	return nil
}

// Clear throws everything away and starts over.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		return ErrInProgress
	}
	s.cart = nil
	s.sel = Selection{TaxRate: s.defaultTax}
	s.dropSnapshot()
	s.lastErr = ""
	s.lastSale = nil
	s.state = StateIdle
	return nil
}

func (s *Session) dropSnapshot() {
	s.snapshot = nil
	s.bankAccountID, s.receiptNumber = "", ""
	s.cashReceived = decimal.Zero
}
