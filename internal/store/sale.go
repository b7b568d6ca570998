package store

import (
	"context"

	"fintab-pos/internal/models"
)

func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return wrap(s.with(ctx).Create(c).Error, "insert customer", "customer")
}

func (s *Store) GetCustomer(ctx context.Context, businessID, id string) (*models.Customer, error) {
	var c models.Customer
	if err := s.with(ctx).First(&c, "business_id = ? AND id = ?", businessID, id).Error; err != nil {
		return nil, wrap(err, "select customer", "customer")
	}
	return &c, nil
}

var customerSorts = map[string]string{
	"name":   "name",
	"newest": "created_at desc",
	"oldest": "created_at",
}

func (s *Store) ListCustomers(ctx context.Context, businessID, query, sort string) ([]models.Customer, error) {
	q := s.with(ctx).Where("business_id = ?", businessID)
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("name LIKE ? OR phone LIKE ? OR email LIKE ?", like, like, like)
	}
	order, ok := customerSorts[sort]
	if !ok {
		order = "name"
	}
	var out []models.Customer
	err := q.Order(order).Find(&out).Error
	return out, wrap(err, "select customers", "customer")
}

func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	// items are inserted with the header
	return wrap(s.with(ctx).Create(sale).Error, "insert sale", "sale")
}

func (s *Store) GetSale(ctx context.Context, businessID, id string) (*models.Sale, error) {
	var sale models.Sale
	if err := s.with(ctx).Preload("Items").First(&sale, "business_id = ? AND id = ?", businessID, id).Error; err != nil {
		return nil, wrap(err, "select sale", "sale")
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, businessID string, f SaleFilter) ([]models.Sale, error) {
	q := s.with(ctx).Preload("Items").Where("business_id = ?", businessID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("sale_time >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("sale_time <= ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Sale
	err := q.Order("sale_time desc").Find(&out).Error
	return out, wrap(err, "select sales", "sale")
}
