package database

import (
	"context"
	"time"

	"fintab-pos/internal/models"

	"gorm.io/gorm"
)

// SalesReportResult is the revenue summary over finalized sales.
type SalesReportResult struct {
	TotalRevenue    float64
	TotalTax        float64
	TotalCommission float64
	TotalCount      int64
}

// StaffCommission is one row of the commission-by-staff report.
type StaffCommission struct {
	StaffID    string  `json:"staff_id"`
	Sales      int64   `json:"sales"`
	Revenue    float64 `json:"revenue"`
	Commission float64 `json:"commission"`
}

func finalizedSales(db *gorm.DB, businessID string, start, end time.Time) *gorm.DB {
	return db.Model(&models.Sale{}).
		Where("business_id = ? AND status IN ? AND sale_time BETWEEN ? AND ?", businessID, models.FinalizedSaleStatuses, start, end)
}

// GetSalesReport sums finalized sales within a date range.
func GetSalesReport(ctx context.Context, db *gorm.DB, businessID string, start, end time.Time) (*SalesReportResult, error) {
	var result SalesReportResult
	db = db.WithContext(ctx)

	// COALESCE gives 0 instead of NULL when there are no sales
	err := finalizedSales(db, businessID, start, end).
		Select("COALESCE(SUM(total), 0) AS total_revenue, COALESCE(SUM(tax_amount), 0) AS total_tax, COALESCE(SUM(commission_total), 0) AS total_commission").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	if err := finalizedSales(db, businessID, start, end).Count(&result.TotalCount).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCommissionByStaff groups finalized sales by the credited staff member.
func GetCommissionByStaff(ctx context.Context, db *gorm.DB, businessID string, start, end time.Time) ([]StaffCommission, error) {
	var rows []StaffCommission
	err := finalizedSales(db.WithContext(ctx), businessID, start, end).
		Select("staff_id, COUNT(*) AS sales, COALESCE(SUM(total), 0) AS revenue, COALESCE(SUM(commission_total), 0) AS commission").
		Group("staff_id").
		Order("commission desc").
		Scan(&rows).Error
	return rows, err
}

// TopSeller is one row of the best-sellers list.
type TopSeller struct {
	ProductName string  `json:"product_name"`
	Sold        int     `json:"sold"`
	Revenue     float64 `json:"revenue"`
}

// GetTopSelling ranks sold items by quantity over finalized sales.
func GetTopSelling(ctx context.Context, db *gorm.DB, businessID string, start, end time.Time, limit int) ([]TopSeller, error) {
	var rows []TopSeller
	err := db.WithContext(ctx).Table("sale_items").
		Select("sale_items.name AS product_name, SUM(sale_items.quantity) AS sold, COALESCE(SUM(sale_items.line_subtotal), 0) AS revenue").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.business_id = ? AND sales.status IN ? AND sales.sale_time BETWEEN ? AND ?", businessID, models.FinalizedSaleStatuses, start, end).
		Group("sale_items.name").
		Order("sold desc").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// StockDelta is the net stock movement of one product or variant.
type StockDelta struct {
	ProductID string
	VariantID string
	Delta     int
}

// GetStockDeltasSince sums stock movements recorded after since.
func GetStockDeltasSince(ctx context.Context, db *gorm.DB, businessID string, since time.Time) ([]StockDelta, error) {
	var rows []StockDelta
	err := db.WithContext(ctx).Model(&models.StockHistory{}).
		Select("product_id, variant_id, COALESCE(SUM(delta), 0) AS delta").
		Where("business_id = ? AND created_at > ?", businessID, since).
		Group("product_id, variant_id").
		Scan(&rows).Error
	return rows, err
}
