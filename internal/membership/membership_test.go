package membership

import (
	"context"
	"strings"
	"testing"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/database"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ownerID = models.Identity{UserID: "u-owner", Email: "owner@shop.test", Name: "Owner"}

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	return NewService(store.New(db), zap.NewNop(), 15*time.Second)
}

func registered(t *testing.T, s *Service) (*models.Business, models.Actor) {
	t.Helper()
	ctx := context.Background()
	biz, err := s.RegisterBusiness(ctx, ownerID, "Corner Shop", models.BusinessSettings{})
	require.NoError(t, err)
	actor, err := s.ResolveActor(ctx, ownerID, biz.ID)
	require.NoError(t, err)
	return biz, actor
}

func TestRegisterBusinessMakesOwner(t *testing.T) {
	s := newService(t)
	biz, actor := registered(t, s)

	assert.Equal(t, models.RoleOwner, actor.Role)
	assert.Equal(t, biz.ID, actor.BusinessID)

	list, err := s.Businesses(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Corner Shop", list[0].Name)

	_, err = s.ResolveActor(context.Background(), models.Identity{UserID: "stranger"}, biz.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestRegisterBusinessTimeout(t *testing.T) {
	s := newService(t)
	s.timeout = -time.Second

	_, err := s.RegisterBusiness(context.Background(), ownerID, "Late Shop", models.BusinessSettings{})
	assert.ErrorIs(t, err, ErrRegistrationTimeout)

	list, err := s.Businesses(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInviteAndRedeem(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	biz, owner := registered(t, s)

	inv, token, err := s.Invite(ctx, owner, InviteInput{
		Email:        "Kasir@Shop.test",
		Capabilities: []string{models.CapCashSale},
		Assignments:  []string{"cash_count.counter"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, inv.Role)
	assert.True(t, strings.HasPrefix(token, inv.ID+"."))
	assert.NotContains(t, inv.SecretHash, strings.TrimPrefix(token, inv.ID+"."))

	cashier := models.Identity{UserID: "u-cashier", Email: "kasir@shop.test", Name: "Kasir"}
	m, err := s.Redeem(ctx, cashier, token)
	require.NoError(t, err)
	assert.Equal(t, biz.ID, m.BusinessID)
	assert.Equal(t, []string{"cash_count.counter"}, m.Assignments)

	actor, err := s.ResolveActor(ctx, cashier, biz.ID)
	require.NoError(t, err)
	assert.True(t, actor.Can(models.CapCashSale))
	assert.False(t, actor.Can(models.CapManageBank))

	other := models.Identity{UserID: "u-other", Email: "kasir@shop.test"}
	_, err = s.Redeem(ctx, other, token)
	assert.ErrorIs(t, err, ErrInvitationUsed)
}

func TestRedeemRejections(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, owner := registered(t, s)

	_, token, err := s.Invite(ctx, owner, InviteInput{Email: "a@shop.test"})
	require.NoError(t, err)
	id, _, _ := strings.Cut(token, ".")

	tests := []struct {
		name  string
		who   models.Identity
		token string
		want  error
	}{
		{"malformed", models.Identity{UserID: "x", Email: "a@shop.test"}, "garbage", ErrInvalidInvitation},
		{"unknown id", models.Identity{UserID: "x", Email: "a@shop.test"}, "nope.secret", ErrInvalidInvitation},
		{"wrong secret", models.Identity{UserID: "x", Email: "a@shop.test"}, id + ".wrong", ErrInvalidInvitation},
		{"wrong email", models.Identity{UserID: "x", Email: "b@shop.test"}, token, ErrEmailMismatch},
		{"other member of the business", ownerID, token, ErrEmailMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Redeem(ctx, tt.who, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	s.now = func() time.Time { return time.Now().UTC().Add(8 * 24 * time.Hour) }
	_, err = s.Redeem(ctx, models.Identity{UserID: "x", Email: "a@shop.test"}, token)
	assert.ErrorIs(t, err, ErrInvitationExpired)
}

func TestInvitePermissions(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, owner := registered(t, s)

	staff := models.Actor{UserID: "u-staff", BusinessID: owner.BusinessID, Role: models.RoleStaff}
	_, _, err := s.Invite(ctx, staff, InviteInput{Email: "c@shop.test"})
	assert.ErrorIs(t, err, ErrCannotInvite)

	staff.Capabilities = []string{models.CapInviteMembers}
	_, _, err = s.Invite(ctx, staff, InviteInput{Email: "c@shop.test", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrCannotInvite)
	_, _, err = s.Invite(ctx, staff, InviteInput{Email: "c@shop.test"})
	assert.NoError(t, err)

	_, _, err = s.Invite(ctx, owner, InviteInput{Email: "c@shop.test", Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrInviteRole)
	_, _, err = s.Invite(ctx, owner, InviteInput{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInviteEmail)
}

func TestUpdateMemberAndRecipients(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	biz, owner := registered(t, s)

	_, token, err := s.Invite(ctx, owner, InviteInput{Email: "v@shop.test"})
	require.NoError(t, err)
	verifier := models.Identity{UserID: "u-verifier", Email: "v@shop.test"}
	_, err = s.Redeem(ctx, verifier, token)
	require.NoError(t, err)

	holders, err := s.Recipients(ctx, biz.ID, "cash_count.verifier1")
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, ownerID.UserID, holders[0].UserID)

	staffActor, err := s.ResolveActor(ctx, verifier, biz.ID)
	require.NoError(t, err)
	_, err = s.UpdateMember(ctx, staffActor, verifier.UserID, MemberUpdate{Assignments: []string{"cash_count.verifier1"}})
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = s.UpdateMember(ctx, owner, verifier.UserID, MemberUpdate{Assignments: []string{"cash_count.verifier1"}})
	require.NoError(t, err)

	holders, err = s.Recipients(ctx, biz.ID, "cash_count.verifier1")
	require.NoError(t, err)
	assert.Len(t, holders, 2)

	_, err = s.UpdateMember(ctx, owner, ownerID.UserID, MemberUpdate{Role: models.RoleStaff})
	assert.ErrorIs(t, err, ErrOwnerRole)

	_, err = s.UpdateMember(ctx, owner, "nobody", MemberUpdate{})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
