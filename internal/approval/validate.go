package approval

import (
	"strings"

	"fintab-pos/internal/models"
)

func validateLines(lines []models.CountLine) error {
	if len(lines) == 0 {
		return ErrNoLines
	}
	for _, l := range lines {
		if l.ProductID == "" {
			return ErrLineProduct
		}
		diff, counted := l.Difference()
		if !counted {
			return ErrMissingCount
		}
		if *l.Counted < 0 {
			return ErrNegativeCount
		}
		if diff != 0 && strings.TrimSpace(l.Note) == "" {
			return ErrVarianceNote
		}
	}
	return nil
}

func validateCashCount(p models.ApprovalPayload) error {
	c := p.CashCount
	if c == nil || p.GoodsReceipt != nil || p.InventoryCheck != nil || p.Expense != nil {
		return ErrPayloadKind
	}
	if c.Counted == nil {
		return ErrCashNotCounted
	}
	if !c.Difference().IsZero() && strings.TrimSpace(c.Note) == "" {
		return ErrCashVarianceNote
	}
	return nil
}

func validateGoodsReceipt(p models.ApprovalPayload) error {
	if p.GoodsReceipt == nil || p.CashCount != nil || p.InventoryCheck != nil || p.Expense != nil {
		return ErrPayloadKind
	}
	return validateLines(p.GoodsReceipt.Lines)
}

func validateInventoryCheck(p models.ApprovalPayload) error {
	if p.InventoryCheck == nil || p.CashCount != nil || p.GoodsReceipt != nil || p.Expense != nil {
		return ErrPayloadKind
	}
	return validateLines(p.InventoryCheck.Lines)
}

func validateExpense(p models.ApprovalPayload) error {
	e := p.Expense
	if e == nil || p.CashCount != nil || p.GoodsReceipt != nil || p.InventoryCheck != nil {
		return ErrPayloadKind
	}
	if !e.Amount.IsPositive() {
		return ErrExpenseAmount
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrExpenseDescription
	}
	return nil
}
