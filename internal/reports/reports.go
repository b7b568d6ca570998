// Package reports builds the back-office summaries: stock valuation, sales
// and commission by staff. Only finalized sales count as revenue.
package reports

import (
	"context"
	"sort"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/database"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const uncategorized = "Uncategorized"

type Service struct {
	repo store.Repository
	db   *gorm.DB
}

func NewService(repo store.Repository, db *gorm.DB) *Service {
	return &Service{repo: repo, db: db}
}

// ValuationItem is one stocked product or variant.
type ValuationItem struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	CostPrice decimal.Decimal `json:"cost_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Valuation struct {
	AsOf       time.Time       `json:"as_of"`
	Categories []CategoryGroup `json:"categories"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// StockValuation values current stock at cost, grouped by category.
func (s *Service) StockValuation(ctx context.Context, businessID string) (*Valuation, error) {
	return s.valuation(ctx, businessID, time.Now().UTC(), nil)
}

// HistoricalValuation values stock as it stood at a past moment by rolling
// back every movement recorded since. Cost prices are today's.
func (s *Service) HistoricalValuation(ctx context.Context, businessID string, at time.Time) (*Valuation, error) {
	deltas, err := database.GetStockDeltasSince(ctx, s.db, businessID, at)
	if err != nil {
		return nil, apperr.Remote(pkgerrors.Wrap(err, "sum stock history"))
	}
	since := make(map[[2]string]int, len(deltas))
	for _, d := range deltas {
		since[[2]string{d.ProductID, d.VariantID}] = d.Delta
	}
	return s.valuation(ctx, businessID, at, since)
}

func (s *Service) valuation(ctx context.Context, businessID string, at time.Time, since map[[2]string]int) (*Valuation, error) {
	products, err := s.repo.ListProducts(ctx, businessID, store.ProductFilter{})
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*CategoryGroup)
	grand := decimal.Zero
	add := func(category string, item ValuationItem) {
		g, ok := grouped[category]
		if !ok {
			g = &CategoryGroup{CategoryName: category, Items: []ValuationItem{}, Subtotal: decimal.Zero}
			grouped[category] = g
		}
		item.Quantity -= since[[2]string{item.ProductID, item.VariantID}]
		item.TotalCost = item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		g.Items = append(g.Items, item)
		g.Subtotal = g.Subtotal.Add(item.TotalCost)
		grand = grand.Add(item.TotalCost)
	}

	for _, p := range products {
		category := p.Category
		if category == "" {
			category = uncategorized
		}
		add(category, ValuationItem{ProductID: p.ID, Name: p.Name, Quantity: p.StockQuantity, CostPrice: p.CostPrice})
		for _, v := range p.Variants {
			name := p.Name
			for _, a := range v.Attributes {
				name += " / " + a.Value
			}
			add(category, ValuationItem{ProductID: p.ID, VariantID: v.ID, Name: name, Quantity: v.StockQuantity, CostPrice: p.CostPrice})
		}
	}

	out := &Valuation{AsOf: at, GrandTotal: grand}
	for _, g := range grouped {
		out.Categories = append(out.Categories, *g)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		return out.Categories[i].CategoryName < out.Categories[j].CategoryName
	})
	return out, nil
}

type SalesSummary struct {
	From            time.Time            `json:"from"`
	To              time.Time            `json:"to"`
	TotalRevenue    float64              `json:"total_revenue"`
	TotalTax        float64              `json:"total_tax"`
	TotalCommission float64              `json:"total_commission"`
	TotalOrders     int64                `json:"total_orders"`
	TopSelling      []database.TopSeller `json:"top_selling"`
	RecentSales     []models.Sale        `json:"recent_sales"`
}

// Sales summarises finalized sales between from and to.
func (s *Service) Sales(ctx context.Context, businessID string, from, to time.Time) (*SalesSummary, error) {
	totals, err := database.GetSalesReport(ctx, s.db, businessID, from, to)
	if err != nil {
		return nil, apperr.Remote(pkgerrors.Wrap(err, "sum sales"))
	}
	top, err := database.GetTopSelling(ctx, s.db, businessID, from, to, 5)
	if err != nil {
		return nil, apperr.Remote(pkgerrors.Wrap(err, "rank top sellers"))
	}
	recent, err := s.repo.ListSales(ctx, businessID, store.SaleFilter{From: from, To: to, Limit: 10})
	if err != nil {
		return nil, err
	}
	return &SalesSummary{
		From:            from,
		To:              to,
		TotalRevenue:    totals.TotalRevenue,
		TotalTax:        totals.TotalTax,
		TotalCommission: totals.TotalCommission,
		TotalOrders:     totals.TotalCount,
		TopSelling:      top,
		RecentSales:     recent,
	}, nil
}

type StaffCommission struct {
	database.StaffCommission
	Name string `json:"name"`
}

// Commission credits finalized sales to the staff member selected at checkout.
func (s *Service) Commission(ctx context.Context, businessID string, from, to time.Time) ([]StaffCommission, error) {
	rows, err := database.GetCommissionByStaff(ctx, s.db, businessID, from, to)
	if err != nil {
		return nil, apperr.Remote(pkgerrors.Wrap(err, "sum commission"))
	}
	members, err := s.repo.ListMemberships(ctx, businessID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.UserID] = m.DisplayName
	}
	out := make([]StaffCommission, len(rows))
	for i, r := range rows {
		out[i] = StaffCommission{StaffCommission: r, Name: names[r.StaffID]}
	}
	return out, nil
}
