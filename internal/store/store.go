// Package store is the persistence boundary: one repository interface per
// aggregate, implemented on gorm. Every read-modify-write caller runs inside
// Transaction and locks the rows it mutates.
package store

import (
	"context"
	"errors"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/models"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStale is returned when a conditional update lost a race.
var ErrStale = apperr.New(apperr.KindConflict, "record was modified by someone else, reload and retry")

type Businesses interface {
	CreateBusiness(ctx context.Context, b *models.Business) error
	GetBusiness(ctx context.Context, id string) (*models.Business, error)
	ListBusinessesForUser(ctx context.Context, userID string) ([]models.Business, error)
	UpdateBusinessSettings(ctx context.Context, id string, settings models.BusinessSettings) error
}

type Members interface {
	CreateMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, businessID, userID string) (*models.Membership, error)
	ListMemberships(ctx context.Context, businessID string) ([]models.Membership, error)
	UpdateMembership(ctx context.Context, m *models.Membership) error
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	LockInvitation(ctx context.Context, id string) (*models.Invitation, error)
	ConsumeInvitation(ctx context.Context, id, userID string, at time.Time) error
}

type ProductFilter struct {
	Category string
	Query    string
}

type Products interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, businessID, id string) (*models.Product, error)
	FindProductByBarcode(ctx context.Context, businessID, barcode string) (*models.Product, error)
	ListProducts(ctx context.Context, businessID string, f ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	CreateVariant(ctx context.Context, v *models.ProductVariant) error
	DeleteProduct(ctx context.Context, businessID, id string) error
	LockProduct(ctx context.Context, businessID, id string) (*models.Product, error)
	SetStock(ctx context.Context, productID, variantID string, qty int) error
	CreateStockHistory(ctx context.Context, h *models.StockHistory) error
	ListStockHistory(ctx context.Context, businessID, productID string) ([]models.StockHistory, error)
}

type Customers interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, businessID, id string) (*models.Customer, error)
	ListCustomers(ctx context.Context, businessID, query, sort string) ([]models.Customer, error)
}

type SaleFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int
}

type Sales interface {
	CreateSale(ctx context.Context, s *models.Sale) error
	GetSale(ctx context.Context, businessID, id string) (*models.Sale, error)
	ListSales(ctx context.Context, businessID string, f SaleFilter) ([]models.Sale, error)
}

type Approvals interface {
	CreateApproval(ctx context.Context, r *models.ApprovalRecord) error
	GetApproval(ctx context.Context, businessID, id string) (*models.ApprovalRecord, error)
	LockApproval(ctx context.Context, businessID, id string) (*models.ApprovalRecord, error)
	ListApprovals(ctx context.Context, businessID, kind, status string) ([]models.ApprovalRecord, error)
	AppendSignature(ctx context.Context, s *models.ApprovalSignature) error
	AppendAuditEntry(ctx context.Context, e *models.ApprovalAuditEntry) error
	// UpdateApprovalStatus moves the record only if it is still at version; otherwise ErrStale.
	UpdateApprovalStatus(ctx context.Context, id string, version int, status string) error
}

type Accounts interface {
	CreateAccount(ctx context.Context, a *models.BankAccount) error
	GetAccount(ctx context.Context, businessID, id string) (*models.BankAccount, error)
	LockAccount(ctx context.Context, businessID, id string) (*models.BankAccount, error)
	ListAccounts(ctx context.Context, businessID string) ([]models.BankAccount, error)
	// UpdateBalance is a compare-and-swap on the account version.
	UpdateBalance(ctx context.Context, id string, version int, balance decimal.Decimal) error
	CreateBankTransaction(ctx context.Context, t *models.BankTransaction) error
	ListBankTransactions(ctx context.Context, businessID, accountID string) ([]models.BankTransaction, error)
}

// Repository is every aggregate plus a transaction boundary.
type Repository interface {
	Businesses
	Members
	Products
	Customers
	Sales
	Approvals
	Accounts
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

// Store implements Repository on gorm.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for read-only aggregate queries.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrap classifies a gorm failure: missing rows become not_found, the rest remote.
func wrap(err error, op, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return apperr.Remote(pkgerrors.Wrap(err, op))
}
