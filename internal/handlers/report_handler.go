package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/reports"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errBadDate = apperr.New(apperr.KindValidation, "date must be in YYYY-MM-DD format")

// --- GET: /api/reports?from=&to= ---
func (h *Handler) GetSalesReport(c *gin.Context) {
	from, to, err := h.dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := h.Reports.Sales(c.Request.Context(), actor(c).BusinessID, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// --- GET: /api/reports/commission?from=&to= ---
func (h *Handler) GetCommissionReport(c *gin.Context) {
	from, to, err := h.dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.Reports.Commission(c.Request.Context(), actor(c).BusinessID, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- GET: /api/reports/valuation ---
// GetStockValuation calculates the total monetary value of all physical inventory
func (h *Handler) GetStockValuation(c *gin.Context) {
	v, err := h.Reports.StockValuation(c.Request.Context(), actor(c).BusinessID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// --- GET: /api/reports/valuation/history?date=YYYY-MM-DD ---
// Stock as it stood at the end of the given day.
func (h *Handler) GetHistoricalValuation(c *gin.Context) {
	day, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		h.fail(c, errBadDate)
		return
	}
	v, err := h.Reports.HistoricalValuation(c.Request.Context(), actor(c).BusinessID, day.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// --- GET: /api/reports/valuation/export ---
func (h *Handler) ExportStockValuation(c *gin.Context) {
	v, err := h.Reports.StockValuation(c.Request.Context(), actor(c).BusinessID)
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteValuationXLSX(&buf, v); err != nil {
		h.fail(c, apperr.Remote(err))
		return
	}
	h.sendWorkbook(c, "stock-valuation", buf.Bytes())
}

// --- GET: /api/reports/commission/export?from=&to= ---
func (h *Handler) ExportCommissionReport(c *gin.Context) {
	from, to, err := h.dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.Reports.Commission(c.Request.Context(), actor(c).BusinessID, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteCommissionXLSX(&buf, rows); err != nil {
		h.fail(c, apperr.Remote(err))
		return
	}
	h.sendWorkbook(c, "commission", buf.Bytes())
}

func (h *Handler) sendWorkbook(c *gin.Context, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, h.now().Format(dateLayout))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
