package checkout

import (
	"fintab-pos/internal/apperr"
)

var (
	ErrEmptyCart           = apperr.New(apperr.KindValidation, "cart is empty")
	ErrNoCustomer          = apperr.New(apperr.KindValidation, "select a customer")
	ErrNoStaff             = apperr.New(apperr.KindValidation, "select a staff member")
	ErrNoPaymentMethod     = apperr.New(apperr.KindValidation, "select a payment method")
	ErrUnknownPayment      = apperr.New(apperr.KindValidation, "unknown payment method")
	ErrInvalidQuantity     = apperr.New(apperr.KindValidation, "quantity cannot be negative")
	ErrUnknownVariant      = apperr.New(apperr.KindValidation, "variant does not belong to this product")
	ErrNotEnoughStock      = apperr.New(apperr.KindValidation, "quantity exceeds available stock")
	ErrBankDetailsRequired = apperr.New(apperr.KindValidation, "select the destination account and enter the transfer receipt number")
	ErrInsufficientCash    = apperr.New(apperr.KindValidation, "cash received is less than the total")
	ErrDiscountNotAllowed  = apperr.New(apperr.KindAuthorization, "you are not allowed to apply discounts")
	ErrPaymentNotAllowed   = apperr.New(apperr.KindAuthorization, "you are not allowed to take this payment method")
	ErrInProgress          = apperr.New(apperr.KindConflict, "checkout is already being processed")
	ErrWrongState          = apperr.New(apperr.KindConflict, "checkout is not at this step")
	ErrStockChanged        = apperr.New(apperr.KindIntegrity, "stock changed since the item was added, not enough left")
)
