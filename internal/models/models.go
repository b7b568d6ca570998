package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles inside a business.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Capabilities a membership may hold. Owners and admins implicitly hold all of them.
const (
	CapDiscount        = "discount"
	CapCashSale        = "cash_sale"
	CapCardSale        = "card_sale"
	CapBankTransfer    = "bank_transfer"
	CapManageInventory = "manage_inventory"
	CapManageBank      = "manage_bank"
	CapViewReports     = "view_reports"
	CapInviteMembers   = "invite_members"
)

// Business - a tenant account
type Business struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	Name      string           `gorm:"size:120" json:"name"`
	OwnerID   string           `gorm:"size:64;index" json:"owner_id"`
	Settings  BusinessSettings `gorm:"serializer:json" json:"settings"`
	CreatedAt time.Time        `json:"created_at"`
}

type BusinessSettings struct {
	// Lets one person sign two consecutive approval stages on the same record.
	AllowSelfVerification bool            `json:"allow_self_verification"`
	DefaultTaxRate        decimal.Decimal `json:"default_tax_rate"`
}

// Membership - links an identity to a business with a role, capabilities and workflow assignments
type Membership struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	BusinessID   string    `gorm:"size:36;uniqueIndex:idx_member" json:"business_id"`
	UserID       string    `gorm:"size:64;uniqueIndex:idx_member" json:"user_id"`
	Email        string    `gorm:"size:190" json:"email"`
	DisplayName  string    `gorm:"size:120" json:"display_name"`
	Role         string    `gorm:"size:20" json:"role"`
	Capabilities []string  `gorm:"serializer:json" json:"capabilities"`
	Assignments  []string  `gorm:"serializer:json" json:"assignments"` // workflow roles, e.g. "cash_count.verifier1"
	CreatedAt    time.Time `json:"created_at"`
}

// Invitation - a capability token that lets the invited email join a business
type Invitation struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	BusinessID   string     `gorm:"size:36;index" json:"business_id"`
	Email        string     `gorm:"size:190" json:"email"`
	Role         string     `gorm:"size:20" json:"role"`
	Capabilities []string   `gorm:"serializer:json" json:"capabilities"`
	Assignments  []string   `gorm:"serializer:json" json:"assignments"`
	SecretHash   string     `gorm:"size:100" json:"-"`
	InvitedBy    string     `gorm:"size:64" json:"invited_by"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	ConsumedBy   string     `gorm:"size:64" json:"consumed_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Identity is what the hosted identity provider vouches for.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Actor is an identity acting inside one business.
type Actor struct {
	UserID       string
	Name         string
	Email        string
	BusinessID   string
	Role         string
	Capabilities []string
	Assignments  []string
}

func (a Actor) IsOwnerOrAdmin() bool {
	return a.Role == RoleOwner || a.Role == RoleAdmin
}

// Can reports whether the actor holds a capability.
func (a Actor) Can(capability string) bool {
	if a.IsOwnerOrAdmin() {
		return true
	}
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Holds reports whether the actor may sign for a workflow role.
func (a Actor) Holds(workflowRole string) bool {
	if a.IsOwnerOrAdmin() {
		return true
	}
	for _, r := range a.Assignments {
		if r == workflowRole {
			return true
		}
	}
	return false
}

func (m Membership) Actor() Actor {
	return Actor{
		UserID:       m.UserID,
		Name:         m.DisplayName,
		Email:        m.Email,
		BusinessID:   m.BusinessID,
		Role:         m.Role,
		Capabilities: m.Capabilities,
		Assignments:  m.Assignments,
	}
}

// Customer - someone the business sells to
type Customer struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	BusinessID string    `gorm:"size:36;index" json:"business_id"`
	Name       string    `gorm:"size:120" json:"name"`
	Phone      string    `gorm:"size:40" json:"phone"`
	Email      string    `gorm:"size:190" json:"email"`
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}
