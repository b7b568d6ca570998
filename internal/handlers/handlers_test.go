package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fintab-pos/internal/ai"
	"fintab-pos/internal/approval"
	"fintab-pos/internal/auth"
	"fintab-pos/internal/catalog"
	"fintab-pos/internal/checkout"
	"fintab-pos/internal/database"
	"fintab-pos/internal/incident"
	"fintab-pos/internal/ledger"
	"fintab-pos/internal/membership"
	"fintab-pos/internal/middleware"
	"fintab-pos/internal/models"
	"fintab-pos/internal/reports"
	"fintab-pos/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	ownerID = models.Identity{UserID: "u-owner", Email: "owner@shop.test", Name: "Olu"}
	staffID = models.Identity{UserID: "u-staff", Email: "Staff@Shop.test", Name: "Sam"}
)

type fixture struct {
	t   *testing.T
	r   *gin.Engine
	v   *auth.Verifier
	biz string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	repo := store.New(db)

	members := membership.NewService(repo, log, 5*time.Second)
	led := ledger.NewService(repo, log)
	rep := reports.NewService(repo, db)
	incidents, err := incident.Open(filepath.Join(t.TempDir(), "incidents.json"), log)
	require.NoError(t, err)

	h := New(Deps{
		Repo:      repo,
		Members:   members,
		Catalog:   catalog.NewService(repo, log),
		Ledger:    led,
		Approvals: approval.NewEngine(repo, led, members, approval.LogNotifier{Log: log}, log),
		Sessions:  checkout.NewRegistry(),
		Recorder:  checkout.NewStoreRecorder(repo, log),
		Reports:   rep,
		Agent:     ai.NewAgent("", "test-model", ai.NewTools(repo, rep), log),
		Incidents: incidents,
		Log:       log,
	})

	f := &fixture{t: t, r: gin.New(), v: auth.NewVerifier("test-secret")}
	f.r.Use(incident.Recovery(incidents, h.Scope))
	h.Register(f.r, f.v)
	f.r.GET("/api/boom", middleware.AuthMiddleware(f.v), middleware.ActiveBusiness(members), func(c *gin.Context) {
		panic("till drawer jammed")
	})

	w := f.do(http.MethodPost, "/api/businesses", ownerID, "", gin.H{
		"name":     "Corner Shop",
		"settings": gin.H{"default_tax_rate": "10"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f.biz = decode[models.Business](t, w).ID
	return f
}

func (f *fixture) do(method, path string, id models.Identity, business string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, err := f.v.GenerateToken(id, time.Hour)
	require.NoError(f.t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if business != "" {
		req.Header.Set(middleware.BusinessHeader, business)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) owner(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	return f.do(method, path, ownerID, f.biz, body)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCashSale(t *testing.T) {
	f := newFixture(t)

	w := f.owner(http.MethodPost, "/api/products", gin.H{
		"name": "Rice 5kg", "barcode": "600100", "price": "150", "cost_price": "100",
		"stock_quantity": 10, "commission_percentage": "10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode[models.Product](t, w)

	w = f.owner(http.MethodPost, "/api/customers", gin.H{"name": "Ada"})
	require.Equal(t, http.StatusCreated, w.Code)
	customer := decode[models.Customer](t, w)

	w = f.owner(http.MethodPost, "/api/checkout/begin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cart is empty", errorOf(t, w))

	w = f.owner(http.MethodPost, "/api/checkout/cart", gin.H{"barcode": "600100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = f.owner(http.MethodPut, "/api/checkout/cart", gin.H{"product_id": product.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = f.owner(http.MethodPut, "/api/checkout/selection", gin.H{
		"customer_id": customer.ID, "staff_id": ownerID.UserID, "payment_method": models.PaymentCash,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[checkout.View](t, w)
	assert.True(t, view.Totals.Subtotal.Equal(d("450")))
	assert.True(t, view.Selection.TaxRate.Equal(d("10")), "business default tax rate")

	w = f.owner(http.MethodPost, "/api/checkout/begin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, checkout.StatePendingConfirmation, decode[checkout.View](t, w).State)

	w = f.owner(http.MethodPost, "/api/checkout/cash", gin.H{"amount": "500"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[checkout.View](t, w).Change.Equal(d("5")))

	w = f.owner(http.MethodPost, "/api/checkout/confirm", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[struct {
		Sale     models.Sale   `json:"sale"`
		Checkout checkout.View `json:"checkout"`
	}](t, w)
	assert.True(t, res.Sale.Total.Equal(d("495")))
	assert.True(t, res.Sale.CommissionTotal.Equal(d("45")))
	assert.Equal(t, models.SaleCompleted, res.Sale.Status)
	assert.Empty(t, res.Checkout.Lines)

	w = f.owner(http.MethodGet, "/api/products/"+product.ID, nil)
	assert.Equal(t, 7, decode[models.Product](t, w).StockQuantity)

	w = f.owner(http.MethodGet, "/api/receipts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Sale](t, w), 1)

	w = f.owner(http.MethodGet, "/api/receipts/"+res.Sale.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.Sale](t, w).Items, 1)
}

func TestMembershipBoundaries(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/products", ownerID, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/products", staffID, f.biz, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.owner(http.MethodPost, "/api/invitations", gin.H{
		"email": "staff@shop.test", "role": models.RoleStaff, "capabilities": []string{models.CapCashSale},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[map[string]any](t, w)["token"].(string)

	w = f.do(http.MethodPost, "/api/invitations/redeem", staffID, "", gin.H{"token": token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/api/products", staffID, f.biz, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/api/reports", staffID, f.biz, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(http.MethodPost, "/api/products", staffID, f.biz, gin.H{"name": "Soap"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(http.MethodGet, "/api/system/incidents", staffID, f.biz, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/api/invitations/redeem", staffID, "", gin.H{"token": token})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBankTransfers(t *testing.T) {
	f := newFixture(t)

	w := f.owner(http.MethodPost, "/api/bank-accounts", gin.H{"name": "Main", "opening_balance": "200"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	main := decode[models.BankAccount](t, w)
	w = f.owner(http.MethodPost, "/api/bank-accounts", gin.H{"name": "Savings"})
	require.Equal(t, http.StatusCreated, w.Code)
	savings := decode[models.BankAccount](t, w)

	w = f.owner(http.MethodPost, "/api/bank-accounts/transfer", gin.H{
		"from_account_id": main.ID, "to_account_id": savings.ID, "amount": "250",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.owner(http.MethodPost, "/api/bank-accounts/transfer", gin.H{
		"from_account_id": main.ID, "to_account_id": savings.ID, "amount": "50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decode[[]models.BankTransaction](t, w), 2)

	w = f.owner(http.MethodGet, "/api/bank-accounts/"+main.ID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[ledger.Reconciliation](t, w)
	assert.True(t, rec.Balanced)
	assert.True(t, rec.Balance.Equal(d("150")))
}

func TestWeeklyInventoryCheck(t *testing.T) {
	f := newFixture(t)

	w := f.owner(http.MethodPost, "/api/products", gin.H{"name": "Oil", "price": "30", "stock_quantity": 10})
	require.Equal(t, http.StatusCreated, w.Code)
	product := decode[models.Product](t, w)

	payload := func(note string) gin.H {
		return gin.H{
			"kind": models.KindInventoryCheck,
			"payload": gin.H{"inventory_check": gin.H{"lines": []gin.H{
				{"product_id": product.ID, "expected": 10, "counted": 8, "note": note},
			}}},
		}
	}
	w = f.owner(http.MethodPost, "/api/approvals", payload(""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, approval.ErrVarianceNote.Error(), errorOf(t, w))

	w = f.owner(http.MethodPost, "/api/approvals", payload("two bottles broken"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode[models.ApprovalRecord](t, w)

	w = f.owner(http.MethodPost, "/api/approvals/"+rec.ID+"/finalize", gin.H{"outcome": approval.OutcomeFlagged})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.owner(http.MethodPut, "/api/business/settings", gin.H{"allow_self_verification": true, "default_tax_rate": "10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.owner(http.MethodPost, "/api/approvals/"+rec.ID+"/finalize", gin.H{"outcome": approval.OutcomeFlagged})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, approval.OutcomeFlagged, decode[models.ApprovalRecord](t, w).Status)

	w = f.owner(http.MethodGet, "/api/approvals?kind="+models.KindInventoryCheck, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ApprovalRecord](t, w), 1)
}

func TestPanicIsRecordedAsIncident(t *testing.T) {
	f := newFixture(t)

	w := f.owner(http.MethodGet, "/api/boom", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	id := decode[map[string]string](t, w)["incident_id"]
	assert.NotEmpty(t, id)

	w = f.owner(http.MethodGet, "/api/system/incidents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]incident.Incident](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, ownerID.UserID, list[0].ActorID)
	assert.Equal(t, "till drawer jammed", list[0].Message)

	w = f.owner(http.MethodDelete, "/api/system/incidents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.owner(http.MethodGet, "/api/system/incidents", nil)
	assert.Empty(t, decode[[]incident.Incident](t, w))
}

func TestReportsAndExports(t *testing.T) {
	f := newFixture(t)

	w := f.owner(http.MethodPost, "/api/products", gin.H{"name": "Oil", "category": "Pantry", "price": "30", "cost_price": "20", "stock_quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.owner(http.MethodGet, "/api/reports/valuation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[reports.Valuation](t, w).GrandTotal.Equal(d("60")))

	w = f.owner(http.MethodGet, "/api/reports/valuation/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stock-valuation-")

	w = f.owner(http.MethodGet, "/api/reports/valuation/history?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.owner(http.MethodGet, "/api/reports?from=2026-02-01&to=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.owner(http.MethodPost, "/api/ask", gin.H{"message": "what is low on stock?"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, ai.ErrNotConfigured.Error(), errorOf(t, w))
}
