package approval

import (
	"context"
	"time"

	"fintab-pos/internal/models"
	"fintab-pos/internal/store"
)

// Outcome statuses.
const (
	OutcomeAuthorized = "authorized"
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeFlagged    = "flagged"
)

// Stage is one signature step. Status is what the record shows once the stage
// is signed; the last stage has none, its signature sets the outcome.
type Stage struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Role   string `json:"role"`
}

// FinalizeEvent is handed to a kind's side effect inside the finalizing transaction.
type FinalizeEvent struct {
	Tx      store.Repository
	Record  *models.ApprovalRecord
	Actor   models.Actor
	Outcome string
	At      time.Time
}

type Definition struct {
	Kind       string                                           `json:"kind"`
	Stages     []Stage                                          `json:"stages"`
	Outcomes   []string                                         `json:"outcomes"`
	Validate   func(p models.ApprovalPayload) error             `json:"-"`
	OnFinalize func(ctx context.Context, e FinalizeEvent) error `json:"-"`
}

// Role builds the workflow role name for a stage, e.g. "cash_count.verifier1".
func Role(kind, stage string) string {
	return kind + "." + stage
}

func stages(kind string, names []string, statuses []string) []Stage {
	out := make([]Stage, len(names))
	for i, n := range names {
		out[i] = Stage{Name: n, Role: Role(kind, n)}
		if i < len(statuses) {
			out[i].Status = statuses[i]
		}
	}
	return out
}

// stageAt returns the index of the signed stage whose status the record shows, or -1.
func (d Definition) stageAt(status string) int {
	for i, s := range d.Stages[:len(d.Stages)-1] {
		if s.Status == status {
			return i
		}
	}
	return -1
}

func (d Definition) final() Stage {
	return d.Stages[len(d.Stages)-1]
}

func (d Definition) isOutcome(status string) bool {
	for _, o := range d.Outcomes {
		if o == status {
			return true
		}
	}
	return false
}

func (e *Engine) buildDefinitions() map[string]Definition {
	defs := []Definition{
		{
			Kind:     models.KindCashCount,
			Stages:   stages(models.KindCashCount, []string{"counter", "verifier1", "verifier2"}, []string{"pending_v1", "pending_v2"}),
			Outcomes: []string{OutcomeAuthorized, OutcomeRejected},
			Validate: validateCashCount,
		},
		{
			Kind:       models.KindGoodsReceiving,
			Stages:     stages(models.KindGoodsReceiving, []string{"first", "second", "manager"}, []string{"first_signed", "second_signed"}),
			Outcomes:   []string{OutcomeAccepted, OutcomeRejected},
			Validate:   validateGoodsReceipt,
			OnFinalize: e.receiveGoods,
		},
		{
			Kind:     models.KindInventoryCheck,
			Stages:   stages(models.KindInventoryCheck, []string{"counter", "verifier"}, []string{"submitted"}),
			Outcomes: []string{OutcomeAccepted, OutcomeFlagged},
			Validate: validateInventoryCheck,
		},
		{
			Kind:       models.KindExpense,
			Stages:     stages(models.KindExpense, []string{"requester", "approver"}, []string{"pending_approval"}),
			Outcomes:   []string{OutcomeAccepted, OutcomeRejected},
			Validate:   validateExpense,
			OnFinalize: e.payExpense,
		},
	}
	out := make(map[string]Definition, len(defs))
	for _, d := range defs {
		out[d.Kind] = d
	}
	return out
}
