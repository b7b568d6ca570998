package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintab-pos/internal/database"
	"fintab-pos/internal/ledger"
	"fintab-pos/internal/membership"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (c *capturingNotifier) Notify(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
	return nil
}

type fixture struct {
	engine   *Engine
	repo     *store.Store
	ledger   *ledger.Service
	notifier *capturingNotifier
	biz      *models.Business
	owner    models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	repo := store.New(db)
	log := zap.NewNop()

	members := membership.NewService(repo, log, 15*time.Second)
	ctx := context.Background()
	owner := models.Identity{UserID: "u-owner", Email: "owner@shop.test", Name: "Owner"}
	biz, err := members.RegisterBusiness(ctx, owner, "Corner Shop", models.BusinessSettings{})
	require.NoError(t, err)
	actor, err := members.ResolveActor(ctx, owner, biz.ID)
	require.NoError(t, err)

	led := ledger.NewService(repo, log)
	n := &capturingNotifier{}
	return &fixture{
		engine:   NewEngine(repo, led, members, n, log),
		repo:     repo,
		ledger:   led,
		notifier: n,
		biz:      biz,
		owner:    actor,
	}
}

func (f *fixture) staff(id string, assignments ...string) models.Actor {
	return models.Actor{UserID: id, Name: id, BusinessID: f.biz.ID, Role: models.RoleStaff, Assignments: assignments}
}

func intp(v int) *int { return &v }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func cashCount(expected, counted, note string) models.ApprovalPayload {
	return models.ApprovalPayload{CashCount: &models.CashCountPayload{
		Expected: decimal.RequireFromString(expected),
		Counted:  decp(counted),
		Note:     note,
	}}
}

func TestCashCountLadder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	counter := f.staff("u-counter", "cash_count.counter")
	v1 := f.staff("u-v1", "cash_count.verifier1")
	v2 := f.staff("u-v2", "cash_count.verifier2")

	rec, err := f.engine.Submit(ctx, counter, models.KindCashCount, cashCount("1000", "1000", ""), "end of day")
	require.NoError(t, err)
	assert.Equal(t, "pending_v1", rec.Status)
	require.Len(t, rec.Signatures, 1)
	require.Len(t, rec.AuditLog, 1)

	_, err = f.engine.Finalize(ctx, v2, rec.ID, OutcomeAuthorized, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.Advance(ctx, counter, rec.ID, "counter", "verifier1", "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	rec, err = f.engine.Advance(ctx, v1, rec.ID, "counter", "verifier1", "ok")
	require.NoError(t, err)
	assert.Equal(t, "pending_v2", rec.Status)

	_, err = f.engine.Finalize(ctx, v2, rec.ID, OutcomeAccepted, "")
	assert.ErrorIs(t, err, ErrUnknownOutcome)

	rec, err = f.engine.Finalize(ctx, v2, rec.ID, OutcomeAuthorized, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAuthorized, rec.Status)
	require.Len(t, rec.Signatures, 3)
	require.Len(t, rec.AuditLog, 3)
	assert.Equal(t, []string{"counter", "verifier1", "verifier2"},
		[]string{rec.Signatures[0].Stage, rec.Signatures[1].Stage, rec.Signatures[2].Stage})
	assert.Equal(t, []string{"pending_v1", "pending_v2", OutcomeAuthorized},
		[]string{rec.AuditLog[0].Status, rec.AuditLog[1].Status, rec.AuditLog[2].Status})
	last, _ := rec.LastSignature()
	assert.Equal(t, "verifier2", last.Stage)

	_, err = f.engine.Finalize(ctx, f.owner, rec.ID, OutcomeRejected, "")
	assert.ErrorIs(t, err, ErrAlreadyFinal)
}

func TestSelfVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.engine.Submit(ctx, f.owner, models.KindCashCount, cashCount("50", "50", ""), "")
	require.NoError(t, err)

	_, err = f.engine.Advance(ctx, f.owner, rec.ID, "counter", "verifier1", "")
	assert.ErrorIs(t, err, ErrSelfVerification)

	require.NoError(t, f.repo.UpdateBusinessSettings(ctx, f.biz.ID, models.BusinessSettings{AllowSelfVerification: true}))
	rec, err = f.engine.Advance(ctx, f.owner, rec.ID, "counter", "verifier1", "")
	require.NoError(t, err)
	assert.Equal(t, "pending_v2", rec.Status)
}

func TestStaleAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	counter := f.staff("u-counter", "cash_count.counter")
	v1a := f.staff("u-v1a", "cash_count.verifier1")
	v1b := f.staff("u-v1b", "cash_count.verifier1")

	rec, err := f.engine.Submit(ctx, counter, models.KindCashCount, cashCount("10", "10", ""), "")
	require.NoError(t, err)

	_, err = f.engine.Advance(ctx, v1a, rec.ID, "counter", "verifier1", "")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, v1b, rec.ID, "counter", "verifier1", "")
	assert.ErrorIs(t, err, ErrStaleTransition)

	got, err := f.engine.Get(ctx, f.owner, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Signatures, 2)
	assert.Equal(t, "u-v1a", got.Signatures[1].ActorID)
}

func TestCashCountValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, f.owner, models.KindCashCount, cashCount("100", "90", ""), "")
	assert.ErrorIs(t, err, ErrCashVarianceNote)

	_, err = f.engine.Submit(ctx, f.owner, models.KindCashCount,
		models.ApprovalPayload{CashCount: &models.CashCountPayload{Expected: decimal.NewFromInt(1)}}, "")
	assert.ErrorIs(t, err, ErrCashNotCounted)

	_, err = f.engine.Submit(ctx, f.owner, models.KindCashCount,
		models.ApprovalPayload{Expense: &models.ExpensePayload{Amount: decimal.NewFromInt(1), Description: "x"}}, "")
	assert.ErrorIs(t, err, ErrPayloadKind)

	_, err = f.engine.Submit(ctx, f.owner, "payroll", models.ApprovalPayload{}, "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestWeeklyCheckVarianceNeedsNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payload := func(counted *int, note string) models.ApprovalPayload {
		return models.ApprovalPayload{InventoryCheck: &models.InventoryCheckPayload{
			Lines: []models.CountLine{{ProductID: "p1", Name: "Soap", Expected: 10, Counted: counted, Note: note}},
		}}
	}

	_, err := f.engine.Submit(ctx, f.owner, models.KindInventoryCheck, payload(intp(8), ""), "")
	assert.ErrorIs(t, err, ErrVarianceNote)
	_, err = f.engine.Submit(ctx, f.owner, models.KindInventoryCheck, payload(nil, ""), "")
	assert.ErrorIs(t, err, ErrMissingCount)

	rec, err := f.engine.Submit(ctx, f.owner, models.KindInventoryCheck, payload(intp(8), "two damaged"), "")
	require.NoError(t, err)
	assert.Equal(t, "submitted", rec.Status)
	diff, ok := rec.Payload.InventoryCheck.Lines[0].Difference()
	assert.True(t, ok)
	assert.Equal(t, -2, diff)

	_, err = f.engine.Advance(ctx, f.staff("u-v", "inventory_check.verifier"), rec.ID, "counter", "verifier", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	rec, err = f.engine.Finalize(ctx, f.staff("u-v", "inventory_check.verifier"), rec.ID, OutcomeFlagged, "recount")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFlagged, rec.Status)
}

func goodsReceipt(productID string, expected, received int) models.ApprovalPayload {
	return models.ApprovalPayload{GoodsReceipt: &models.GoodsReceiptPayload{
		Supplier: "Acme",
		Lines: []models.CountLine{{
			ProductID: productID,
			Name:      "Soap",
			Expected:  expected,
			Counted:   intp(received),
			Note:      "short delivery",
		}},
	}}
}

func receiveThroughLadder(t *testing.T, f *fixture, payload models.ApprovalPayload, outcome string) *models.ApprovalRecord {
	t.Helper()
	ctx := context.Background()
	rec, err := f.engine.Submit(ctx, f.staff("u-first", "goods_receiving.first"), models.KindGoodsReceiving, payload, "")
	require.NoError(t, err)
	assert.Equal(t, "first_signed", rec.Status)
	rec, err = f.engine.Advance(ctx, f.staff("u-second", "goods_receiving.second"), rec.ID, "first", "second", "")
	require.NoError(t, err)
	assert.Equal(t, "second_signed", rec.Status)
	rec, err = f.engine.Finalize(ctx, f.staff("u-manager", "goods_receiving.manager"), rec.ID, outcome, "")
	require.NoError(t, err)
	return rec
}

func TestGoodsReceivingAcceptedAddsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := &models.Product{ID: "p-soap", BusinessID: f.biz.ID, Name: "Soap", Price: decimal.NewFromInt(3), StockQuantity: 5}
	require.NoError(t, f.repo.CreateProduct(ctx, p))

	rec := receiveThroughLadder(t, f, goodsReceipt(p.ID, 20, 12), OutcomeAccepted)
	assert.Equal(t, OutcomeAccepted, rec.Status)

	got, err := f.repo.GetProduct(ctx, f.biz.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, got.StockQuantity)

	history, err := f.repo.ListStockHistory(ctx, f.biz.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 12, history[0].Delta)
	assert.Equal(t, models.StockReasonGoodsReceiving, history[0].Reason)
	assert.Equal(t, rec.ID, history[0].Reference)
}

func TestGoodsReceivingRejectedLeavesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := &models.Product{ID: "p-soap", BusinessID: f.biz.ID, Name: "Soap", Price: decimal.NewFromInt(3), StockQuantity: 5}
	require.NoError(t, f.repo.CreateProduct(ctx, p))

	receiveThroughLadder(t, f, goodsReceipt(p.ID, 20, 12), OutcomeRejected)

	got, err := f.repo.GetProduct(ctx, f.biz.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
	history, err := f.repo.ListStockHistory(ctx, f.biz.ID, p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGoodsReceivingUnknownProductRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.engine.Submit(ctx, f.owner, models.KindGoodsReceiving, goodsReceipt("missing", 1, 1), "")
	require.NoError(t, err)
	rec, err = f.engine.Advance(ctx, f.staff("u-second", "goods_receiving.second"), rec.ID, "first", "second", "")
	require.NoError(t, err)

	_, err = f.engine.Finalize(ctx, f.staff("u-manager", "goods_receiving.manager"), rec.ID, OutcomeAccepted, "")
	require.Error(t, err)

	got, err := f.engine.Get(ctx, f.owner, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "second_signed", got.Status)
	assert.Len(t, got.Signatures, 2)
	assert.Len(t, got.AuditLog, 2)
}

func TestExpenseAcceptedDebitsAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct, err := f.ledger.CreateAccount(ctx, f.owner, ledger.AccountInput{Name: "Main", OpeningBalance: decimal.NewFromInt(300)})
	require.NoError(t, err)

	requester := f.staff("u-req", "expense.requester")
	payload := models.ApprovalPayload{Expense: &models.ExpensePayload{
		Amount:        decimal.NewFromInt(120),
		Category:      "supplies",
		Description:   "cleaning supplies",
		BankAccountID: acct.ID,
	}}
	rec, err := f.engine.Submit(ctx, requester, models.KindExpense, payload, "")
	require.NoError(t, err)
	assert.Equal(t, "pending_approval", rec.Status)

	rec, err = f.engine.Finalize(ctx, f.owner, rec.ID, OutcomeAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, rec.Status)

	got, err := f.ledger.Account(ctx, f.biz.ID, acct.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(180)))
	rows, err := f.ledger.Transactions(ctx, f.biz.ID, acct.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.TxExpense, rows[1].Type)
	assert.Equal(t, rec.ID, rows[1].Reference)
}

func TestExpenseInsufficientFundsKeepsRecordPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct, err := f.ledger.CreateAccount(ctx, f.owner, ledger.AccountInput{Name: "Main", OpeningBalance: decimal.NewFromInt(50)})
	require.NoError(t, err)

	payload := models.ApprovalPayload{Expense: &models.ExpensePayload{
		Amount: decimal.NewFromInt(120), Description: "rent", BankAccountID: acct.ID,
	}}
	rec, err := f.engine.Submit(ctx, f.staff("u-req", "expense.requester"), models.KindExpense, payload, "")
	require.NoError(t, err)

	_, err = f.engine.Finalize(ctx, f.owner, rec.ID, OutcomeAccepted, "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	got, err := f.engine.Get(ctx, f.owner, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending_approval", got.Status)

	_, err = f.engine.Submit(ctx, f.owner, models.KindExpense,
		models.ApprovalPayload{Expense: &models.ExpensePayload{Amount: decimal.Zero, Description: "x"}}, "")
	assert.ErrorIs(t, err, ErrExpenseAmount)
}

func TestSubmitNotifiesNextStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.engine.Submit(ctx, f.staff("u-counter", "cash_count.counter"), models.KindCashCount, cashCount("5", "5", ""), "")
	require.NoError(t, err)

	require.Len(t, f.notifier.got, 1)
	n := f.notifier.got[0]
	assert.Equal(t, rec.ID, n.RecordID)
	assert.Equal(t, "verifier1", n.Stage)
	assert.Equal(t, "cash_count.verifier1", n.Role)
	assert.Equal(t, []string{f.owner.UserID}, n.Recipients)

	list, err := f.engine.List(ctx, f.owner, models.KindCashCount, "pending_v1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = f.engine.List(ctx, f.owner, "payroll", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
