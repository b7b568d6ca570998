package checkout

import (
	"context"

	"fintab-pos/internal/metrics"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"
	"fintab-pos/internal/utils"

	"go.uber.org/zap"
)

// StoreRecorder writes a sale, its stock decrements and their history in one transaction.
type StoreRecorder struct {
	repo store.Repository
	log  *zap.Logger
}

func NewStoreRecorder(repo store.Repository, log *zap.Logger) *StoreRecorder {
	return &StoreRecorder{repo: repo, log: log}
}

func (r *StoreRecorder) Record(ctx context.Context, sale *models.Sale) error {
	err := r.repo.Transaction(ctx, func(tx store.Repository) error {
		for _, item := range sale.Items {
			p, err := tx.LockProduct(ctx, sale.BusinessID, item.ProductID)
			if err != nil {
				return err
			}
			available := p.Available(item.VariantID)
			if available < item.Quantity {
				return ErrStockChanged
			}
			balance := available - item.Quantity
			if err := tx.SetStock(ctx, p.ID, item.VariantID, balance); err != nil {
				return err
			}
			if err := tx.CreateStockHistory(ctx, &models.StockHistory{
				ID:         utils.NewID(),
				BusinessID: sale.BusinessID,
				ProductID:  p.ID,
				VariantID:  item.VariantID,
				Delta:      -item.Quantity,
				Balance:    balance,
				Reason:     models.StockReasonSale,
				Reference:  sale.ID,
				ActorID:    sale.CashierID,
				CreatedAt:  sale.SaleTime,
			}); err != nil {
				return err
			}
		}
		return tx.CreateSale(ctx, sale)
	})
	if err != nil {
		metrics.SaleFailures.Inc()
		r.log.Warn("sale not recorded",
			zap.String("business_id", sale.BusinessID),
			zap.String("cashier_id", sale.CashierID),
			zap.Error(err))
		return err
	}

	metrics.SalesRecorded.WithLabelValues(sale.PaymentMethod, sale.Status).Inc()
	r.log.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("business_id", sale.BusinessID),
		zap.String("payment_method", sale.PaymentMethod),
		zap.String("total", sale.Total.StringFixed(2)))
	return nil
}
