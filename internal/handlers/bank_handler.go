package handlers

import (
	"net/http"

	"fintab-pos/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- GET: /api/bank-accounts ---
func (h *Handler) GetBankAccounts(c *gin.Context) {
	list, err := h.Ledger.Accounts(c.Request.Context(), actor(c).BusinessID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- POST: /api/bank-accounts ---
func (h *Handler) CreateBankAccount(c *gin.Context) {
	var in ledger.AccountInput
	if !bind(c, &in) {
		return
	}
	acct, err := h.Ledger.CreateAccount(c.Request.Context(), actor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// --- POST: /api/bank-accounts/:id/deposit ---
func (h *Handler) Deposit(c *gin.Context) {
	var req DepositRequest
	if !bind(c, &req) {
		return
	}
	tx, err := h.Ledger.Deposit(c.Request.Context(), actor(c), c.Param("id"), req.Amount, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

type TransferRequest struct {
	From   string          `json:"from_account_id" binding:"required"`
	To     string          `json:"to_account_id" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// --- POST: /api/bank-accounts/transfer ---
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if !bind(c, &req) {
		return
	}
	legs, err := h.Ledger.Transfer(c.Request.Context(), actor(c), req.From, req.To, req.Amount, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, legs)
}

// --- GET: /api/bank-accounts/:id/transactions ---
func (h *Handler) GetBankTransactions(c *gin.Context) {
	rows, err := h.Ledger.Transactions(c.Request.Context(), actor(c).BusinessID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- GET: /api/bank-accounts/:id/reconcile ---
func (h *Handler) ReconcileBankAccount(c *gin.Context) {
	rec, err := h.Ledger.Reconcile(c.Request.Context(), actor(c).BusinessID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
