package ledger

import (
	"context"
	"testing"

	"fintab-pos/internal/database"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var owner = models.Actor{UserID: "u-owner", BusinessID: "b1", Role: models.RoleOwner}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	return NewService(store.New(db), zap.NewNop())
}

func openAccount(t *testing.T, s *Service, name, opening string) *models.BankAccount {
	t.Helper()
	acct, err := s.CreateAccount(context.Background(), owner, AccountInput{Name: name, OpeningBalance: d(opening)})
	require.NoError(t, err)
	return acct
}

func TestOpeningBalanceIsPosted(t *testing.T) {
	s := newService(t)
	acct := openAccount(t, s, "Main", "200")
	assert.True(t, acct.Balance.Equal(d("200")))

	rows, err := s.Transactions(context.Background(), "b1", acct.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.TxDeposit, rows[0].Type)

	empty := openAccount(t, s, "Petty cash", "0")
	rows, err = s.Transactions(context.Background(), "b1", empty.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransferMoreThanBalanceIsRejected(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := openAccount(t, s, "A", "200")
	b := openAccount(t, s, "B", "0")

	_, err := s.Transfer(ctx, owner, a.ID, b.ID, d("250"), "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	got, err := s.Account(ctx, "b1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(d("200")))
	rows, err := s.Transactions(ctx, "b1", b.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransferWritesTwoLinkedRows(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := openAccount(t, s, "A", "200")
	b := openAccount(t, s, "B", "50")

	legs, err := s.Transfer(ctx, owner, a.ID, b.ID, d("75.5"), "float top-up")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, models.TxTransferOut, legs[0].Type)
	assert.True(t, legs[0].Amount.Equal(d("-75.5")))
	assert.Equal(t, models.TxTransferIn, legs[1].Type)
	assert.True(t, legs[1].Amount.Equal(d("75.5")))
	assert.Equal(t, legs[0].TransferID, legs[1].TransferID)
	assert.True(t, legs[0].CreatedAt.Equal(legs[1].CreatedAt))

	ga, err := s.Account(ctx, "b1", a.ID)
	require.NoError(t, err)
	gb, err := s.Account(ctx, "b1", b.ID)
	require.NoError(t, err)
	assert.True(t, ga.Balance.Add(gb.Balance).Equal(d("250")))

	for _, id := range []string{a.ID, b.ID} {
		rec, err := s.Reconcile(ctx, "b1", id)
		require.NoError(t, err)
		assert.True(t, rec.Balanced, id)
	}
}

func TestTransferValidation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := openAccount(t, s, "A", "10")

	_, err := s.Transfer(ctx, owner, a.ID, a.ID, d("1"), "")
	assert.ErrorIs(t, err, ErrSameAccount)
	_, err = s.Transfer(ctx, owner, a.ID, "other", d("0"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	staff := models.Actor{UserID: "u-staff", BusinessID: "b1", Role: models.RoleStaff}
	_, err = s.Deposit(ctx, staff, a.ID, d("5"), "")
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestDeposit(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := openAccount(t, s, "A", "10")

	_, err := s.Deposit(ctx, owner, a.ID, d("-4"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	row, err := s.Deposit(ctx, owner, a.ID, d("15.25"), "takings")
	require.NoError(t, err)
	assert.True(t, row.BalanceAfter.Equal(d("25.25")))

	got, err := s.Account(ctx, "b1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(d("25.25")))
	assert.Equal(t, 2, got.Version)
}
