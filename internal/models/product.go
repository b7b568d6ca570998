package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product - the inventory
type Product struct {
	ID                   string           `gorm:"primaryKey;size:36" json:"id"`
	BusinessID           string           `gorm:"size:36;index" json:"business_id"`
	Name                 string           `gorm:"size:160" json:"name"`
	Category             string           `gorm:"size:80" json:"category"`
	Barcode              string           `gorm:"size:64;index" json:"barcode"`
	Price                decimal.Decimal  `gorm:"type:decimal(18,4)" json:"price"`
	CostPrice            decimal.Decimal  `gorm:"type:decimal(18,4)" json:"cost_price"`
	StockQuantity        int              `json:"stock_quantity"`
	Tiers                []PriceTier      `gorm:"serializer:json" json:"tiers,omitempty"`
	Variants             []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CommissionPercentage decimal.Decimal  `gorm:"type:decimal(9,4)" json:"commission_percentage"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// PriceTier - bulk price applied once the purchased quantity reaches MinQuantity
type PriceTier struct {
	MinQuantity int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// ProductVariant - owns its price and stock; never falls back to the parent price
type ProductVariant struct {
	ID            string             `gorm:"primaryKey;size:36" json:"id"`
	ProductID     string             `gorm:"size:36;index" json:"product_id"`
	Attributes    []VariantAttribute `gorm:"serializer:json" json:"attributes"`
	Price         decimal.Decimal    `gorm:"type:decimal(18,4)" json:"price"`
	StockQuantity int                `json:"stock_quantity"`
}

type VariantAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant returns the variant with the given id.
func (p Product) Variant(id string) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return ProductVariant{}, false
}

// Available is the stock of the product or of the selected variant.
func (p Product) Available(variantID string) int {
	if variantID == "" {
		return p.StockQuantity
	}
	if v, ok := p.Variant(variantID); ok {
		return v.StockQuantity
	}
	return 0
}

// Stock movement reasons.
const (
	StockReasonSale           = "sale"
	StockReasonGoodsReceiving = "goods_receiving"
	StockReasonAdjustment     = "adjustment"
)

// StockHistory - one row per stock movement
type StockHistory struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	BusinessID string    `gorm:"size:36;index" json:"business_id"`
	ProductID  string    `gorm:"size:36;index" json:"product_id"`
	VariantID  string    `gorm:"size:36" json:"variant_id,omitempty"`
	Delta      int       `json:"delta"`
	Balance    int       `json:"balance"`
	Reason     string    `gorm:"size:40" json:"reason"`
	Reference  string    `gorm:"size:36;index" json:"reference"`
	ActorID    string    `gorm:"size:64" json:"actor_id"`
	CreatedAt  time.Time `json:"created_at"`
}
