// Package catalog maintains the product list. Stock only changes here on
// creation; afterwards it moves through sales and goods receiving.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"
	"fintab-pos/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotAllowed      = apperr.New(apperr.KindAuthorization, "you are not allowed to manage inventory")
	ErrName            = apperr.New(apperr.KindValidation, "product name is required")
	ErrNegativePrice   = apperr.New(apperr.KindValidation, "prices cannot be negative")
	ErrNegativeStock   = apperr.New(apperr.KindValidation, "stock cannot be negative")
	ErrCommissionRange = apperr.New(apperr.KindValidation, "commission must be between 0 and 100 percent")
	ErrTierQuantity    = apperr.New(apperr.KindValidation, "each price tier needs a distinct quantity of at least 2")
	ErrBarcodeTaken    = apperr.New(apperr.KindConflict, "another product already uses this barcode")
	ErrNoAttributes    = apperr.New(apperr.KindValidation, "a variant needs at least one attribute")
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	repo store.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo store.Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type VariantInput struct {
	Attributes    []models.VariantAttribute `json:"attributes"`
	Price         decimal.Decimal           `json:"price"`
	StockQuantity int                       `json:"stock_quantity"`
}

type ProductInput struct {
	Name                 string             `json:"name"`
	Category             string             `json:"category"`
	Barcode              string             `json:"barcode"`
	Price                decimal.Decimal    `json:"price"`
	CostPrice            decimal.Decimal    `json:"cost_price"`
	StockQuantity        int                `json:"stock_quantity"`
	Tiers                []models.PriceTier `json:"tiers"`
	CommissionPercentage decimal.Decimal    `json:"commission_percentage"`
	Variants             []VariantInput     `json:"variants"`
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Barcode = strings.TrimSpace(in.Barcode)
	if in.Name == "" {
		return ErrName
	}
	if in.Price.IsNegative() || in.CostPrice.IsNegative() {
		return ErrNegativePrice
	}
	if in.StockQuantity < 0 {
		return ErrNegativeStock
	}
	if in.CommissionPercentage.IsNegative() || in.CommissionPercentage.GreaterThan(hundred) {
		return ErrCommissionRange
	}
	seen := make(map[int]bool, len(in.Tiers))
	for _, t := range in.Tiers {
		if t.MinQuantity < 2 || seen[t.MinQuantity] {
			return ErrTierQuantity
		}
		if t.Price.IsNegative() {
			return ErrNegativePrice
		}
		seen[t.MinQuantity] = true
	}
	sort.Slice(in.Tiers, func(i, j int) bool { return in.Tiers[i].MinQuantity < in.Tiers[j].MinQuantity })
	for i := range in.Variants {
		if err := in.Variants[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (in VariantInput) validate() error {
	if len(in.Attributes) == 0 {
		return ErrNoAttributes
	}
	if in.Price.IsNegative() {
		return ErrNegativePrice
	}
	if in.StockQuantity < 0 {
		return ErrNegativeStock
	}
	return nil
}

func (s *Service) uniqueBarcode(ctx context.Context, tx store.Repository, businessID, barcode, self string) error {
	if barcode == "" {
		return nil
	}
	other, err := tx.FindProductByBarcode(ctx, businessID, barcode)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if other.ID != self {
		return ErrBarcodeTaken
	}
	return nil
}

// Create adds a product with its variants. Opening stock is written to the
// stock history as an adjustment.
func (s *Service) Create(ctx context.Context, actor models.Actor, in ProductInput) (*models.Product, error) {
	if !actor.Can(models.CapManageInventory) {
		return nil, ErrNotAllowed
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	p := &models.Product{
		ID:                   utils.NewID(),
		BusinessID:           actor.BusinessID,
		Name:                 in.Name,
		Category:             strings.TrimSpace(in.Category),
		Barcode:              in.Barcode,
		Price:                in.Price,
		CostPrice:            in.CostPrice,
		StockQuantity:        in.StockQuantity,
		Tiers:                in.Tiers,
		CommissionPercentage: in.CommissionPercentage,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for _, v := range in.Variants {
		p.Variants = append(p.Variants, models.ProductVariant{
			ID:            utils.NewID(),
			ProductID:     p.ID,
			Attributes:    v.Attributes,
			Price:         v.Price,
			StockQuantity: v.StockQuantity,
		})
	}

	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		if err := s.uniqueBarcode(ctx, tx, actor.BusinessID, p.Barcode, p.ID); err != nil {
			return err
		}
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		if err := s.opening(ctx, tx, actor, p.ID, "", p.StockQuantity); err != nil {
			return err
		}
		for _, v := range p.Variants {
			if err := s.opening(ctx, tx, actor, p.ID, v.ID, v.StockQuantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.String("product_id", p.ID), zap.String("business_id", p.BusinessID))
	return p, nil
}

func (s *Service) opening(ctx context.Context, tx store.Repository, actor models.Actor, productID, variantID string, qty int) error {
	if qty == 0 {
		return nil
	}
	return tx.CreateStockHistory(ctx, &models.StockHistory{
		ID:         utils.NewID(),
		BusinessID: actor.BusinessID,
		ProductID:  productID,
		VariantID:  variantID,
		Delta:      qty,
		Balance:    qty,
		Reason:     models.StockReasonAdjustment,
		Reference:  productID,
		ActorID:    actor.UserID,
		CreatedAt:  s.now(),
	})
}

// Update rewrites the catalogue fields. Stock and variants are left alone.
func (s *Service) Update(ctx context.Context, actor models.Actor, id string, in ProductInput) (*models.Product, error) {
	if !actor.Can(models.CapManageInventory) {
		return nil, ErrNotAllowed
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p *models.Product
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		if p, err = tx.LockProduct(ctx, actor.BusinessID, id); err != nil {
			return err
		}
		if err := s.uniqueBarcode(ctx, tx, actor.BusinessID, in.Barcode, p.ID); err != nil {
			return err
		}
		p.Name = in.Name
		p.Category = strings.TrimSpace(in.Category)
		p.Barcode = in.Barcode
		p.Price = in.Price
		p.CostPrice = in.CostPrice
		p.Tiers = in.Tiers
		p.CommissionPercentage = in.CommissionPercentage
		return tx.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddVariant attaches a variant to an existing product.
func (s *Service) AddVariant(ctx context.Context, actor models.Actor, productID string, in VariantInput) (*models.ProductVariant, error) {
	if !actor.Can(models.CapManageInventory) {
		return nil, ErrNotAllowed
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	v := &models.ProductVariant{
		ID:            utils.NewID(),
		ProductID:     productID,
		Attributes:    in.Attributes,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
	}
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		if _, err := tx.LockProduct(ctx, actor.BusinessID, productID); err != nil {
			return err
		}
		if err := tx.CreateVariant(ctx, v); err != nil {
			return err
		}
		return s.opening(ctx, tx, actor, productID, v.ID, v.StockQuantity)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.Can(models.CapManageInventory) {
		return ErrNotAllowed
	}
	if err := s.repo.DeleteProduct(ctx, actor.BusinessID, id); err != nil {
		return err
	}
	s.log.Info("product deleted", zap.String("product_id", id), zap.String("business_id", actor.BusinessID))
	return nil
}

func (s *Service) List(ctx context.Context, businessID string, f store.ProductFilter) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, businessID, f)
}

func (s *Service) Get(ctx context.Context, businessID, id string) (*models.Product, error) {
	return s.repo.GetProduct(ctx, businessID, id)
}

// Scan finds the product behind a scanned barcode.
func (s *Service) Scan(ctx context.Context, businessID, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, apperr.NotFound("product not found")
	}
	return s.repo.FindProductByBarcode(ctx, businessID, barcode)
}

func (s *Service) History(ctx context.Context, businessID, productID string) ([]models.StockHistory, error) {
	return s.repo.ListStockHistory(ctx, businessID, productID)
}
