package approval

import (
	"context"

	"fintab-pos/internal/ledger"
	"fintab-pos/internal/models"
	"fintab-pos/internal/utils"

	"go.uber.org/zap"
)

// receiveGoods adds the received quantities to stock once the receipt is accepted.
func (e *Engine) receiveGoods(ctx context.Context, ev FinalizeEvent) error {
	if ev.Outcome != OutcomeAccepted {
		return nil
	}
	for _, line := range ev.Record.Payload.GoodsReceipt.Lines {
		if line.Counted == nil || *line.Counted == 0 {
			continue
		}
		received := *line.Counted
		p, err := ev.Tx.LockProduct(ctx, ev.Record.BusinessID, line.ProductID)
		if err != nil {
			return err
		}
		if line.VariantID != "" {
			if _, ok := p.Variant(line.VariantID); !ok {
				return ErrLineProduct
			}
		}
		balance := p.Available(line.VariantID) + received
		if err := ev.Tx.SetStock(ctx, p.ID, line.VariantID, balance); err != nil {
			return err
		}
		if err := ev.Tx.CreateStockHistory(ctx, &models.StockHistory{
			ID:         utils.NewID(),
			BusinessID: ev.Record.BusinessID,
			ProductID:  p.ID,
			VariantID:  line.VariantID,
			Delta:      received,
			Balance:    balance,
			Reason:     models.StockReasonGoodsReceiving,
			Reference:  ev.Record.ID,
			ActorID:    ev.Actor.UserID,
			CreatedAt:  ev.At,
		}); err != nil {
			return err
		}
	}
	e.log.Info("goods received into stock", zap.String("record_id", ev.Record.ID))
	return nil
}

// payExpense debits the paying account when an accepted expense names one.
func (e *Engine) payExpense(ctx context.Context, ev FinalizeEvent) error {
	exp := ev.Record.Payload.Expense
	if ev.Outcome != OutcomeAccepted || exp.BankAccountID == "" || e.ledger == nil {
		return nil
	}
	_, err := e.ledger.Post(ctx, ev.Tx, ledger.Posting{
		BusinessID: ev.Record.BusinessID,
		AccountID:  exp.BankAccountID,
		Type:       models.TxExpense,
		Amount:     exp.Amount.Neg(),
		Reference:  ev.Record.ID,
		ActorID:    ev.Actor.UserID,
		Note:       exp.Description,
		At:         ev.At,
	})
	return err
}
