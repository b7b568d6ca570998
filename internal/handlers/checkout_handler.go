package handlers

import (
	"context"
	"net/http"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/checkout"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// session returns the acting cashier's register, creating it with the business tax rate.
func (h *Handler) session(c *gin.Context) (*checkout.Session, error) {
	a := actor(c)
	if s, ok := h.Sessions.Lookup(a.BusinessID, a.UserID); ok {
		return s, nil
	}
	biz, err := h.Members.Business(c.Request.Context(), a.BusinessID)
	if err != nil {
		return nil, err
	}
	return h.Sessions.Get(a.BusinessID, a.UserID, biz.Settings.DefaultTaxRate), nil
}

// withSession runs fn on the register and answers its view.
func (h *Handler) withSession(c *gin.Context, fn func(s *checkout.Session) error) {
	s, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if fn != nil {
		if err := fn(s); err != nil {
			h.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, s.View())
}

// --- GET: /api/checkout ---
func (h *Handler) GetCheckout(c *gin.Context) {
	h.withSession(c, nil)
}

type CartLineRequest struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) cartProduct(ctx context.Context, businessID string, req CartLineRequest) (*models.Product, error) {
	if req.ProductID == "" && req.Barcode != "" {
		return h.Catalog.Scan(ctx, businessID, req.Barcode)
	}
	return h.Catalog.Get(ctx, businessID, req.ProductID)
}

// --- PUT: /api/checkout/cart ---
// Quantity 0 removes the line.
func (h *Handler) SetCartLine(c *gin.Context) {
	var req CartLineRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.cartProduct(c.Request.Context(), actor(c).BusinessID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.withSession(c, func(s *checkout.Session) error {
		return s.SetQuantity(*p, req.VariantID, req.Quantity)
	})
}

// --- POST: /api/checkout/cart ---
// Adds one unit, by product id or scanned barcode.
func (h *Handler) AddToCart(c *gin.Context) {
	var req CartLineRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.cartProduct(c.Request.Context(), actor(c).BusinessID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.withSession(c, func(s *checkout.Session) error {
		return s.AddOne(*p, req.VariantID)
	})
}

// SelectionRequest changes only the fields that are present.
type SelectionRequest struct {
	CustomerID    *string          `json:"customer_id"`
	StaffID       *string          `json:"staff_id"`
	PaymentMethod *string          `json:"payment_method"`
	Discount      *decimal.Decimal `json:"discount"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
}

// --- PUT: /api/checkout/selection ---
func (h *Handler) UpdateSelection(c *gin.Context) {
	var req SelectionRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	a := actor(c)

	// 1. Check the referenced customer and staff belong to this business
	if req.CustomerID != nil && *req.CustomerID != "" {
		if _, err := h.Repo.GetCustomer(ctx, a.BusinessID, *req.CustomerID); err != nil {
			h.fail(c, err)
			return
		}
	}
	if req.StaffID != nil && *req.StaffID != "" {
		if _, err := h.Repo.GetMembership(ctx, a.BusinessID, *req.StaffID); err != nil {
			h.fail(c, apperr.NotFound("staff member not found"))
			return
		}
	}

	// 2. Apply what was sent
	h.withSession(c, func(s *checkout.Session) error {
		if req.CustomerID != nil {
			if err := s.SelectCustomer(*req.CustomerID); err != nil {
				return err
			}
		}
		if req.StaffID != nil {
			if err := s.SelectStaff(*req.StaffID); err != nil {
				return err
			}
		}
		if req.PaymentMethod != nil {
			if err := s.SelectPaymentMethod(*req.PaymentMethod); err != nil {
				return err
			}
		}
		if req.Discount != nil {
			if err := s.SetDiscount(a, *req.Discount); err != nil {
				return err
			}
		}
		if req.TaxRate != nil {
			return s.SetTaxRate(*req.TaxRate)
		}
		return nil
	})
}

// --- POST: /api/checkout/begin ---
func (h *Handler) BeginCheckout(c *gin.Context) {
	h.withSession(c, func(s *checkout.Session) error {
		_, err := s.Begin(actor(c))
		return err
	})
}

type BankDetailsRequest struct {
	BankAccountID string `json:"bank_account_id" binding:"required"`
	ReceiptNumber string `json:"receipt_number" binding:"required"`
}

// --- POST: /api/checkout/bank-details ---
func (h *Handler) ProvideBankDetails(c *gin.Context) {
	var req BankDetailsRequest
	if !bind(c, &req) {
		return
	}
	acct, err := h.Ledger.Account(c.Request.Context(), actor(c).BusinessID, req.BankAccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.withSession(c, func(s *checkout.Session) error {
		return s.ProvideBankDetails(acct, req.ReceiptNumber)
	})
}

type CashRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// --- POST: /api/checkout/cash ---
func (h *Handler) EnterCash(c *gin.Context) {
	var req CashRequest
	if !bind(c, &req) {
		return
	}
	h.withSession(c, func(s *checkout.Session) error {
		_, err := s.EnterCashReceived(req.Amount)
		return err
	})
}

// --- POST: /api/checkout/confirm ---
func (h *Handler) ConfirmCheckout(c *gin.Context) {
	s, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	sale, err := s.Confirm(c.Request.Context(), actor(c), h.Recorder)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Sale successful!", "sale": sale, "checkout": s.View()})
}

// --- POST: /api/checkout/cancel ---
func (h *Handler) CancelCheckout(c *gin.Context) {
	h.withSession(c, (*checkout.Session).Cancel)
}

// --- POST: /api/checkout/resume ---
func (h *Handler) ResumeCheckout(c *gin.Context) {
	h.withSession(c, (*checkout.Session).Resume)
}

// --- POST: /api/checkout/clear ---
func (h *Handler) ClearCheckout(c *gin.Context) {
	h.withSession(c, (*checkout.Session).Clear)
}

// --- GET: /api/receipts?status=&from=&to= ---
func (h *Handler) GetReceipts(c *gin.Context) {
	from, to, err := h.dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	sales, err := h.Repo.ListSales(c.Request.Context(), actor(c).BusinessID, store.SaleFilter{
		Status: c.Query("status"),
		From:   from,
		To:     to,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

// --- GET: /api/receipts/:id ---
func (h *Handler) GetReceipt(c *gin.Context) {
	sale, err := h.Repo.GetSale(c.Request.Context(), actor(c).BusinessID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}
