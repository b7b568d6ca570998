package store

import (
	"context"

	"fintab-pos/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	// variants are inserted with the product
	return wrap(s.with(ctx).Create(p).Error, "insert product", "product")
}

func (s *Store) GetProduct(ctx context.Context, businessID, id string) (*models.Product, error) {
	var p models.Product
	err := s.with(ctx).Preload("Variants").First(&p, "business_id = ? AND id = ?", businessID, id).Error
	if err != nil {
		return nil, wrap(err, "select product", "product")
	}
	return &p, nil
}

func (s *Store) FindProductByBarcode(ctx context.Context, businessID, barcode string) (*models.Product, error) {
	var p models.Product
	err := s.with(ctx).Preload("Variants").First(&p, "business_id = ? AND barcode = ?", businessID, barcode).Error
	if err != nil {
		return nil, wrap(err, "select product", "product")
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, businessID string, f ProductFilter) ([]models.Product, error) {
	q := s.with(ctx).Preload("Variants").Where("business_id = ?", businessID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("name LIKE ? OR barcode LIKE ?", like, like)
	}
	var out []models.Product
	err := q.Order("name").Find(&out).Error
	return out, wrap(err, "select products", "product")
}

// UpdateProduct writes the editable catalogue fields. Stock only moves through SetStock.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	err := s.with(ctx).Model(p).
		Select("name", "category", "barcode", "price", "cost_price", "tiers", "commission_percentage").
		Updates(p).Error
	return wrap(err, "update product", "product")
}

func (s *Store) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	return wrap(s.with(ctx).Create(v).Error, "insert variant", "variant")
}

func (s *Store) DeleteProduct(ctx context.Context, businessID, id string) error {
	return s.with(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error; err != nil {
			return wrap(err, "delete variants", "variant")
		}
		res := tx.Where("business_id = ? AND id = ?", businessID, id).Delete(&models.Product{})
		if res.Error != nil {
			return wrap(res.Error, "delete product", "product")
		}
		if res.RowsAffected == 0 {
			return wrap(gorm.ErrRecordNotFound, "delete product", "product")
		}
		return nil
	})
}

// LockProduct reads the product row FOR UPDATE. Must run inside Transaction.
func (s *Store) LockProduct(ctx context.Context, businessID, id string) (*models.Product, error) {
	var p models.Product
	err := s.with(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Variants").
		First(&p, "business_id = ? AND id = ?", businessID, id).Error
	if err != nil {
		return nil, wrap(err, "lock product", "product")
	}
	return &p, nil
}

func (s *Store) SetStock(ctx context.Context, productID, variantID string, qty int) error {
	var res *gorm.DB
	if variantID == "" {
		res = s.with(ctx).Model(&models.Product{}).Where("id = ?", productID).Update("stock_quantity", qty)
	} else {
		res = s.with(ctx).Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", variantID, productID).
			Update("stock_quantity", qty)
	}
	if res.Error != nil {
		return wrap(res.Error, "update stock", "product")
	}
	if res.RowsAffected == 0 {
		return wrap(gorm.ErrRecordNotFound, "update stock", "product")
	}
	return nil
}

func (s *Store) CreateStockHistory(ctx context.Context, h *models.StockHistory) error {
	return wrap(s.with(ctx).Create(h).Error, "insert stock history", "stock history")
}

func (s *Store) ListStockHistory(ctx context.Context, businessID, productID string) ([]models.StockHistory, error) {
	var out []models.StockHistory
	err := s.with(ctx).
		Where("business_id = ? AND product_id = ?", businessID, productID).
		Order("created_at, id").
		Find(&out).Error
	return out, wrap(err, "select stock history", "stock history")
}
