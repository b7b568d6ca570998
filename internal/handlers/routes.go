package handlers

import (
	"net/http"

	"fintab-pos/internal/auth"
	"fintab-pos/internal/metrics"
	"fintab-pos/internal/middleware"
	"fintab-pos/internal/models"

	"github.com/gin-gonic/gin"
)

// Register mounts every route. Routes under /api need a bearer token; all
// but the business list and invitation redemption also need X-Business-ID.
func (h *Handler) Register(r gin.IRouter, v *auth.Verifier) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.GET("/metrics", metrics.Handler())
	r.GET("/api/system/status", h.GetSystemStatus)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(v))
	{
		api.GET("/businesses", h.ListBusinesses)
		api.POST("/businesses", h.RegisterBusiness)
		api.POST("/invitations/redeem", h.RedeemInvitation)
	}

	// --- PROTECTED BY MEMBERSHIP ---
	biz := api.Group("/")
	biz.Use(middleware.ActiveBusiness(h.Members))
	{
		biz.GET("/business", h.GetBusiness)
		biz.GET("/members", h.ListMembers)
		biz.POST("/invitations", h.Invite)

		biz.GET("/products", h.GetProducts)
		biz.GET("/products/scan/:barcode", h.ScanProduct)
		biz.GET("/products/:id", h.GetProduct)
		biz.GET("/products/:id/history", h.StockHistory)
		biz.POST("/products", h.AddProduct)
		biz.PUT("/products/:id", h.UpdateProduct)
		biz.POST("/products/:id/variants", h.AddVariant)
		biz.DELETE("/products/:id", h.DeleteProduct)

		biz.GET("/customers", h.GetCustomers)
		biz.POST("/customers", h.AddCustomer)

		biz.GET("/checkout", h.GetCheckout)
		biz.POST("/checkout/cart", h.AddToCart)
		biz.PUT("/checkout/cart", h.SetCartLine)
		biz.PUT("/checkout/selection", h.UpdateSelection)
		biz.POST("/checkout/begin", h.BeginCheckout)
		biz.POST("/checkout/bank-details", h.ProvideBankDetails)
		biz.POST("/checkout/cash", h.EnterCash)
		biz.POST("/checkout/confirm", h.ConfirmCheckout)
		biz.POST("/checkout/cancel", h.CancelCheckout)
		biz.POST("/checkout/resume", h.ResumeCheckout)
		biz.POST("/checkout/clear", h.ClearCheckout)

		biz.GET("/receipts", h.GetReceipts)
		biz.GET("/receipts/:id", h.GetReceipt)

		biz.GET("/approvals/definitions", h.GetApprovalDefinitions)
		biz.GET("/approvals", h.GetApprovals)
		biz.POST("/approvals", h.SubmitApproval)
		biz.GET("/approvals/:id", h.GetApproval)
		biz.POST("/approvals/:id/advance", h.AdvanceApproval)
		biz.POST("/approvals/:id/finalize", h.FinalizeApproval)

		biz.GET("/bank-accounts", h.GetBankAccounts)
		biz.POST("/bank-accounts", h.CreateBankAccount)
		biz.POST("/bank-accounts/transfer", h.Transfer)
		biz.POST("/bank-accounts/:id/deposit", h.Deposit)

		// the assistant only reads, with the caller's own permissions
		biz.POST("/ask", h.AskAI)
	}

	bank := biz.Group("/bank-accounts")
	bank.Use(middleware.RequireCapability(models.CapManageBank))
	{
		bank.GET("/:id/transactions", h.GetBankTransactions)
		bank.GET("/:id/reconcile", h.ReconcileBankAccount)
	}

	rep := biz.Group("/reports")
	rep.Use(middleware.RequireCapability(models.CapViewReports))
	{
		rep.GET("", h.GetSalesReport)
		rep.GET("/commission", h.GetCommissionReport)
		rep.GET("/commission/export", h.ExportCommissionReport)
		rep.GET("/valuation", h.GetStockValuation)
		rep.GET("/valuation/history", h.GetHistoricalValuation)
		rep.GET("/valuation/export", h.ExportStockValuation)
	}

	// ADMIN ONLY
	admin := biz.Group("/")
	admin.Use(middleware.RequireOwnerOrAdmin())
	{
		admin.PUT("/business/settings", h.UpdateSettings)
		admin.PUT("/members/:id", h.UpdateMember)
		admin.GET("/system/incidents", h.GetIncidents)
		admin.DELETE("/system/incidents", h.ClearIncidents)
	}
}
