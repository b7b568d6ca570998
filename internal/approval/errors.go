package approval

import "fintab-pos/internal/apperr"

var (
	ErrUnknownKind        = apperr.New(apperr.KindValidation, "unknown approval kind")
	ErrPayloadKind        = apperr.New(apperr.KindValidation, "payload does not match the approval kind")
	ErrNoLines            = apperr.New(apperr.KindValidation, "add at least one line")
	ErrLineProduct        = apperr.New(apperr.KindValidation, "every line needs a product")
	ErrMissingCount       = apperr.New(apperr.KindValidation, "every line needs a counted quantity")
	ErrNegativeCount      = apperr.New(apperr.KindValidation, "counted quantities cannot be negative")
	ErrVarianceNote       = apperr.New(apperr.KindValidation, "lines with a variance need a note")
	ErrCashNotCounted     = apperr.New(apperr.KindValidation, "enter the counted cash")
	ErrCashVarianceNote   = apperr.New(apperr.KindValidation, "a cash difference needs a note")
	ErrExpenseAmount      = apperr.New(apperr.KindValidation, "expense amount must be greater than zero")
	ErrExpenseDescription = apperr.New(apperr.KindValidation, "expense needs a description")
	ErrUnknownOutcome     = apperr.New(apperr.KindValidation, "outcome is not valid for this approval kind")
	ErrInvalidTransition  = apperr.New(apperr.KindValidation, "that stage does not follow the current one")
	ErrNotAuthorized      = apperr.New(apperr.KindAuthorization, "you are not assigned to this approval stage")
	ErrSelfVerification   = apperr.New(apperr.KindAuthorization, "you cannot sign two consecutive stages of the same record")
	ErrStaleTransition    = apperr.New(apperr.KindConflict, "this record has already moved on, reload it")
	ErrAlreadyFinal       = apperr.New(apperr.KindConflict, "this record is already finalized")
)
