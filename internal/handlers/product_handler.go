package handlers

import (
	"net/http"
	"strings"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/catalog"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"
	"fintab-pos/internal/utils"

	"github.com/gin-gonic/gin"
)

var errCustomerName = apperr.New(apperr.KindValidation, "customer name is required")

// --- GET: /api/products?category=&q= ---
func (h *Handler) GetProducts(c *gin.Context) {
	products, err := h.Catalog.List(c.Request.Context(), actor(c).BusinessID, store.ProductFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// --- GET: /api/products/:id ---
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.Catalog.Get(c.Request.Context(), actor(c).BusinessID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- GET: /api/products/scan/:barcode ---
func (h *Handler) ScanProduct(c *gin.Context) {
	p, err := h.Catalog.Scan(c.Request.Context(), actor(c).BusinessID, c.Param("barcode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- POST: /api/products ---
func (h *Handler) AddProduct(c *gin.Context) {
	var in catalog.ProductInput
	if !bind(c, &in) {
		return
	}
	p, err := h.Catalog.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// --- PUT: /api/products/:id ---
// Stock is not editable here; it moves through sales and goods receiving.
func (h *Handler) UpdateProduct(c *gin.Context) {
	var in catalog.ProductInput
	if !bind(c, &in) {
		return
	}
	p, err := h.Catalog.Update(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": p})
}

// --- POST: /api/products/:id/variants ---
func (h *Handler) AddVariant(c *gin.Context) {
	var in catalog.VariantInput
	if !bind(c, &in) {
		return
	}
	v, err := h.Catalog.AddVariant(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// --- DELETE: /api/products/:id ---
func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.Catalog.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// --- GET: /api/products/:id/history ---
func (h *Handler) StockHistory(c *gin.Context) {
	rows, err := h.Catalog.History(c.Request.Context(), actor(c).BusinessID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- GET: /api/customers?q=&sort=name|newest|oldest ---
func (h *Handler) GetCustomers(c *gin.Context) {
	list, err := h.Repo.ListCustomers(c.Request.Context(), actor(c).BusinessID, c.Query("q"), c.Query("sort"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type CustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

// --- POST: /api/customers ---
func (h *Handler) AddCustomer(c *gin.Context) {
	var req CustomerRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.fail(c, errCustomerName)
		return
	}
	cust := &models.Customer{
		ID:         utils.NewID(),
		BusinessID: actor(c).BusinessID,
		Name:       strings.TrimSpace(req.Name),
		Phone:      req.Phone,
		Email:      req.Email,
		Notes:      req.Notes,
		CreatedAt:  h.now(),
	}
	if err := h.Repo.CreateCustomer(c.Request.Context(), cust); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}
