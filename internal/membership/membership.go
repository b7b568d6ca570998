// Package membership owns businesses, their members and invitations, and turns
// an authenticated identity into an actor for one business.
package membership

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"
	"fintab-pos/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const invitationTTL = 7 * 24 * time.Hour

var (
	ErrBusinessName        = apperr.New(apperr.KindValidation, "business name is required")
	ErrRegistrationTimeout = apperr.New(apperr.KindRemote, "business registration timed out, try again")
	ErrNotMember           = apperr.New(apperr.KindAuthorization, "you are not a member of this business")
	ErrNotAllowed          = apperr.New(apperr.KindAuthorization, "only owners and admins can do this")
	ErrCannotInvite        = apperr.New(apperr.KindAuthorization, "you are not allowed to invite members")
	ErrInviteRole          = apperr.New(apperr.KindValidation, "invitations can only grant the admin or staff role")
	ErrInviteEmail         = apperr.New(apperr.KindValidation, "a valid email is required")
	ErrInvalidInvitation   = apperr.New(apperr.KindValidation, "invitation link is not valid")
	ErrInvitationUsed      = apperr.New(apperr.KindConflict, "invitation has already been used")
	ErrInvitationExpired   = apperr.New(apperr.KindValidation, "invitation has expired")
	ErrEmailMismatch       = apperr.New(apperr.KindAuthorization, "this invitation was sent to a different email")
	ErrAlreadyMember       = apperr.New(apperr.KindConflict, "you are already a member of this business")
	ErrOwnerRole           = apperr.New(apperr.KindValidation, "the owner's role cannot be changed")
)

type Service struct {
	repo    store.Repository
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewService(repo store.Repository, log *zap.Logger, registrationTimeout time.Duration) *Service {
	return &Service{
		repo:    repo,
		log:     log,
		timeout: registrationTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterBusiness creates a business owned by the identity. It gives up after
// the registration timeout.
func (s *Service) RegisterBusiness(ctx context.Context, id models.Identity, name string, settings models.BusinessSettings) (*models.Business, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBusinessName
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	biz := &models.Business{
		ID:        utils.NewID(),
		Name:      name,
		OwnerID:   id.UserID,
		Settings:  settings,
		CreatedAt: now,
	}
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		if err := tx.CreateBusiness(ctx, biz); err != nil {
			return err
		}
		return tx.CreateMembership(ctx, &models.Membership{
			ID:          utils.NewID(),
			BusinessID:  biz.ID,
			UserID:      id.UserID,
			Email:       id.Email,
			DisplayName: id.Name,
			Role:        models.RoleOwner,
			CreatedAt:   now,
		})
	})
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.log.Error("business registration timed out", zap.String("user_id", id.UserID))
		return nil, ErrRegistrationTimeout
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("business registered", zap.String("business_id", biz.ID), zap.String("owner", id.UserID))
	return biz, nil
}

func (s *Service) Businesses(ctx context.Context, id models.Identity) ([]models.Business, error) {
	return s.repo.ListBusinessesForUser(ctx, id.UserID)
}

func (s *Service) Business(ctx context.Context, businessID string) (*models.Business, error) {
	return s.repo.GetBusiness(ctx, businessID)
}

func (s *Service) UpdateSettings(ctx context.Context, actor models.Actor, settings models.BusinessSettings) error {
	if !actor.IsOwnerOrAdmin() {
		return ErrNotAllowed
	}
	if settings.DefaultTaxRate.IsNegative() {
		return apperr.Validation("default tax rate cannot be negative")
	}
	return s.repo.UpdateBusinessSettings(ctx, actor.BusinessID, settings)
}

// ResolveActor loads the identity's membership in a business.
func (s *Service) ResolveActor(ctx context.Context, id models.Identity, businessID string) (models.Actor, error) {
	m, err := s.repo.GetMembership(ctx, businessID, id.UserID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return models.Actor{}, ErrNotMember
	}
	if err != nil {
		return models.Actor{}, err
	}
	a := m.Actor()
	if a.Name == "" {
		a.Name = id.Name
	}
	if a.Email == "" {
		a.Email = id.Email
	}
	return a, nil
}

func (s *Service) Members(ctx context.Context, actor models.Actor) ([]models.Membership, error) {
	return s.repo.ListMemberships(ctx, actor.BusinessID)
}

type InviteInput struct {
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
	Assignments  []string `json:"assignments"`
}

// Invite creates an invitation and returns the one-time token "<id>.<secret>".
// Only the bcrypt hash of the secret is stored.
func (s *Service) Invite(ctx context.Context, actor models.Actor, in InviteInput) (*models.Invitation, string, error) {
	if !actor.Can(models.CapInviteMembers) {
		return nil, "", ErrCannotInvite
	}
	switch in.Role {
	case "":
		in.Role = models.RoleStaff
	case models.RoleStaff:
	case models.RoleAdmin:
		if !actor.IsOwnerOrAdmin() {
			return nil, "", ErrCannotInvite
		}
	default:
		return nil, "", ErrInviteRole
	}
	email := strings.TrimSpace(in.Email)
	if !strings.Contains(email, "@") {
		return nil, "", ErrInviteEmail
	}

	secret, err := newSecret()
	if err != nil {
		return nil, "", apperr.Remote(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Remote(err)
	}

	now := s.now()
	inv := &models.Invitation{
		ID:           utils.NewID(),
		BusinessID:   actor.BusinessID,
		Email:        email,
		Role:         in.Role,
		Capabilities: in.Capabilities,
		Assignments:  in.Assignments,
		SecretHash:   string(hash),
		InvitedBy:    actor.UserID,
		ExpiresAt:    now.Add(invitationTTL),
		CreatedAt:    now,
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, "", err
	}
	s.log.Info("member invited", zap.String("invitation_id", inv.ID), zap.String("business_id", inv.BusinessID))
	return inv, inv.ID + "." + secret, nil
}

func newSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Redeem turns a valid invitation into a membership for the identity.
func (s *Service) Redeem(ctx context.Context, id models.Identity, token string) (*models.Membership, error) {
	invID, secret, ok := strings.Cut(token, ".")
	if !ok || invID == "" || secret == "" {
		return nil, ErrInvalidInvitation
	}

	var m *models.Membership
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		inv, err := tx.LockInvitation(ctx, invID)
		if apperr.KindOf(err) == apperr.KindNotFound {
			return ErrInvalidInvitation
		}
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(inv.SecretHash), []byte(secret)) != nil {
			return ErrInvalidInvitation
		}
		if inv.ConsumedAt != nil {
			return ErrInvitationUsed
		}
		now := s.now()
		if now.After(inv.ExpiresAt) {
			return ErrInvitationExpired
		}
		if !strings.EqualFold(strings.TrimSpace(inv.Email), strings.TrimSpace(id.Email)) {
			return ErrEmailMismatch
		}
		if _, err := tx.GetMembership(ctx, inv.BusinessID, id.UserID); err == nil {
			return ErrAlreadyMember
		} else if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}

		m = &models.Membership{
			ID:           utils.NewID(),
			BusinessID:   inv.BusinessID,
			UserID:       id.UserID,
			Email:        id.Email,
			DisplayName:  id.Name,
			Role:         inv.Role,
			Capabilities: inv.Capabilities,
			Assignments:  inv.Assignments,
			CreatedAt:    now,
		}
		if err := tx.CreateMembership(ctx, m); err != nil {
			return err
		}
		if err := tx.ConsumeInvitation(ctx, inv.ID, id.UserID, now); err != nil {
			if errors.Is(err, store.ErrStale) {
				return ErrInvitationUsed
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Warn("invitation not redeemed", zap.String("invitation_id", invID), zap.String("user_id", id.UserID), zap.Error(err))
		return nil, err
	}
	s.log.Info("invitation redeemed", zap.String("invitation_id", invID), zap.String("business_id", m.BusinessID))
	return m, nil
}

type MemberUpdate struct {
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
	Assignments  []string `json:"assignments"`
}

// UpdateMember changes a member's role, capabilities and workflow assignments.
func (s *Service) UpdateMember(ctx context.Context, actor models.Actor, userID string, in MemberUpdate) (*models.Membership, error) {
	if !actor.IsOwnerOrAdmin() {
		return nil, ErrNotAllowed
	}
	m, err := s.repo.GetMembership(ctx, actor.BusinessID, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case in.Role == "" || in.Role == m.Role:
	case m.Role == models.RoleOwner:
		return nil, ErrOwnerRole
	case in.Role == models.RoleAdmin || in.Role == models.RoleStaff:
		m.Role = in.Role
	default:
		return nil, ErrInviteRole
	}
	m.Capabilities = in.Capabilities
	m.Assignments = in.Assignments
	if err := s.repo.UpdateMembership(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("member updated", zap.String("business_id", m.BusinessID), zap.String("user_id", m.UserID), zap.String("by", actor.UserID))
	return m, nil
}

// Recipients lists the members who may sign for a workflow role. When nobody
// is assigned the role, only owners and admins hold it.
func (s *Service) Recipients(ctx context.Context, businessID, role string) ([]models.Membership, error) {
	members, err := s.repo.ListMemberships(ctx, businessID)
	if err != nil {
		return nil, err
	}
	var holders []models.Membership
	assigned := false
	for _, m := range members {
		a := m.Actor()
		if !a.Holds(role) {
			continue
		}
		if !a.IsOwnerOrAdmin() {
			assigned = true
		}
		holders = append(holders, m)
	}
	if !assigned {
		s.log.Warn("workflow role has no assignees", zap.String("business_id", businessID), zap.String("role", role))
	}
	return holders, nil
}
