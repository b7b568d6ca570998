// Package approval is the sign-off engine shared by cash counts, goods
// receiving, weekly inventory checks and expenses. Each kind is a declarative
// ladder of stages; the engine enforces order, role assignment and the
// no-self-verification rule, and writes one signature and one audit entry per
// transition.
package approval

import (
	"context"
	"errors"
	"strings"
	"time"

	"fintab-pos/internal/ledger"
	"fintab-pos/internal/metrics"
	"fintab-pos/internal/models"
	"fintab-pos/internal/store"
	"fintab-pos/internal/utils"

	"go.uber.org/zap"
)

// Poster posts a ledger row inside a running transaction.
type Poster interface {
	Post(ctx context.Context, tx store.Repository, p ledger.Posting) (*models.BankTransaction, error)
}

type Engine struct {
	repo     store.Repository
	ledger   Poster
	dir      Directory
	notifier Notifier
	log      *zap.Logger
	defs     map[string]Definition
	now      func() time.Time
}

func NewEngine(repo store.Repository, poster Poster, dir Directory, notifier Notifier, log *zap.Logger) *Engine {
	e := &Engine{
		repo:     repo,
		ledger:   poster,
		dir:      dir,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	e.defs = e.buildDefinitions()
	return e
}

// Definition returns the stage ladder for a kind.
func (e *Engine) Definition(kind string) (Definition, error) {
	d, ok := e.defs[kind]
	if !ok {
		return Definition{}, ErrUnknownKind
	}
	return d, nil
}

func (e *Engine) Definitions() []Definition {
	out := make([]Definition, 0, len(e.defs))
	for _, k := range []string{models.KindCashCount, models.KindGoodsReceiving, models.KindInventoryCheck, models.KindExpense} {
		out = append(out, e.defs[k])
	}
	return out
}

// Submit creates the record with its first signature.
func (e *Engine) Submit(ctx context.Context, actor models.Actor, kind string, payload models.ApprovalPayload, note string) (*models.ApprovalRecord, error) {
	def, err := e.Definition(kind)
	if err != nil {
		return nil, err
	}
	first := def.Stages[0]
	if !actor.Holds(first.Role) {
		return nil, ErrNotAuthorized
	}
	if err := def.Validate(payload); err != nil {
		e.log.Warn("approval submission rejected", zap.String("kind", kind), zap.String("actor", actor.UserID), zap.Error(err))
		return nil, err
	}

	now := e.now()
	if payload.Date.IsZero() {
		payload.Date = now
	}
	id := utils.NewID()
	rec := &models.ApprovalRecord{
		ID:          id,
		BusinessID:  actor.BusinessID,
		Kind:        kind,
		Status:      first.Status,
		Payload:     payload,
		SubmittedBy: actor.UserID,
		Signatures:  []models.ApprovalSignature{signature(id, first.Name, 1, actor, note, now)},
		AuditLog:    []models.ApprovalAuditEntry{auditEntry(id, 1, first.Status, actor, note, now)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.repo.CreateApproval(ctx, rec); err != nil {
		return nil, err
	}

	metrics.ApprovalTransitions.WithLabelValues(kind, rec.Status).Inc()
	e.log.Info("approval submitted", zap.String("record_id", id), zap.String("kind", kind), zap.String("actor", actor.UserID))
	e.notify(ctx, rec, def.Stages[1])
	return e.repo.GetApproval(ctx, rec.BusinessID, id)
}

// Advance signs an intermediate stage. fromStage must be the stage the record
// currently sits at; a record that already moved returns ErrStaleTransition.
func (e *Engine) Advance(ctx context.Context, actor models.Actor, id, fromStage, toStage, note string) (*models.ApprovalRecord, error) {
	var (
		def  Definition
		next Stage
	)
	err := e.repo.Transaction(ctx, func(tx store.Repository) error {
		rec, d, cur, err := e.lockAt(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		def = d
		if d.Stages[cur].Name != fromStage {
			return ErrStaleTransition
		}
		to := cur + 1
		if to >= len(d.Stages)-1 || d.Stages[to].Name != toStage {
			return ErrInvalidTransition
		}
		next = d.Stages[to+1]
		return e.sign(ctx, tx, actor, rec, d, cur, d.Stages[to].Status, note)
	})
	if err != nil {
		e.log.Warn("approval advance rejected", zap.String("record_id", id), zap.String("actor", actor.UserID), zap.Error(err))
		return nil, err
	}
	rec, err := e.repo.GetApproval(ctx, actor.BusinessID, id)
	if err != nil {
		return nil, err
	}
	metrics.ApprovalTransitions.WithLabelValues(def.Kind, rec.Status).Inc()
	e.log.Info("approval advanced", zap.String("record_id", id), zap.String("status", rec.Status), zap.String("actor", actor.UserID))
	e.notify(ctx, rec, next)
	return rec, nil
}

// Finalize signs the last stage with an outcome and runs the kind's side effect
// in the same transaction.
func (e *Engine) Finalize(ctx context.Context, actor models.Actor, id, outcome, note string) (*models.ApprovalRecord, error) {
	var def Definition
	err := e.repo.Transaction(ctx, func(tx store.Repository) error {
		rec, d, cur, err := e.lockAt(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		def = d
		if cur != len(d.Stages)-2 {
			return ErrInvalidTransition
		}
		if !d.isOutcome(outcome) {
			return ErrUnknownOutcome
		}
		if err := e.sign(ctx, tx, actor, rec, d, cur, outcome, note); err != nil {
			return err
		}
		if d.OnFinalize == nil {
			return nil
		}
		return d.OnFinalize(ctx, FinalizeEvent{Tx: tx, Record: rec, Actor: actor, Outcome: outcome, At: e.now()})
	})
	if err != nil {
		e.log.Warn("approval finalize rejected", zap.String("record_id", id), zap.String("actor", actor.UserID), zap.Error(err))
		return nil, err
	}
	metrics.ApprovalTransitions.WithLabelValues(def.Kind, outcome).Inc()
	e.log.Info("approval finalized", zap.String("record_id", id), zap.String("outcome", outcome), zap.String("actor", actor.UserID))
	return e.repo.GetApproval(ctx, actor.BusinessID, id)
}

// lockAt locks the record and resolves the stage it sits at.
func (e *Engine) lockAt(ctx context.Context, tx store.Repository, actor models.Actor, id string) (*models.ApprovalRecord, Definition, int, error) {
	rec, err := tx.LockApproval(ctx, actor.BusinessID, id)
	if err != nil {
		return nil, Definition{}, 0, err
	}
	def, err := e.Definition(rec.Kind)
	if err != nil {
		return nil, Definition{}, 0, err
	}
	cur := def.stageAt(rec.Status)
	if cur < 0 {
		return nil, Definition{}, 0, ErrAlreadyFinal
	}
	return rec, def, cur, nil
}

// sign appends the signature for stage cur+1 and moves the record to status.
func (e *Engine) sign(ctx context.Context, tx store.Repository, actor models.Actor, rec *models.ApprovalRecord, def Definition, cur int, status, note string) error {
	stage := def.Stages[cur+1]
	if !actor.Holds(stage.Role) {
		return ErrNotAuthorized
	}
	if prev, ok := rec.Signature(def.Stages[cur].Name); ok && prev.ActorID == actor.UserID {
		biz, err := tx.GetBusiness(ctx, rec.BusinessID)
		if err != nil {
			return err
		}
		if !biz.Settings.AllowSelfVerification {
			return ErrSelfVerification
		}
	}
	if _, signed := rec.Signature(stage.Name); signed {
		return ErrStaleTransition
	}

	now := e.now()
	sig := signature(rec.ID, stage.Name, len(rec.Signatures)+1, actor, note, now)
	if err := tx.AppendSignature(ctx, &sig); err != nil {
		return err
	}
	entry := auditEntry(rec.ID, len(rec.AuditLog)+1, status, actor, note, now)
	if err := tx.AppendAuditEntry(ctx, &entry); err != nil {
		return err
	}
	if err := tx.UpdateApprovalStatus(ctx, rec.ID, rec.Version, status); err != nil {
		if errors.Is(err, store.ErrStale) {
			return ErrStaleTransition
		}
		return err
	}
	rec.Status = status
	rec.Signatures = append(rec.Signatures, sig)
	rec.AuditLog = append(rec.AuditLog, entry)
	return nil
}

func (e *Engine) Get(ctx context.Context, actor models.Actor, id string) (*models.ApprovalRecord, error) {
	return e.repo.GetApproval(ctx, actor.BusinessID, id)
}

func (e *Engine) List(ctx context.Context, actor models.Actor, kind, status string) ([]models.ApprovalRecord, error) {
	if kind != "" {
		if _, err := e.Definition(kind); err != nil {
			return nil, err
		}
	}
	return e.repo.ListApprovals(ctx, actor.BusinessID, kind, status)
}

// notify is best effort; a failed delivery never undoes a transition.
func (e *Engine) notify(ctx context.Context, rec *models.ApprovalRecord, stage Stage) {
	if e.notifier == nil || e.dir == nil {
		return
	}
	members, err := e.dir.Recipients(ctx, rec.BusinessID, stage.Role)
	if err != nil {
		e.log.Error("resolve approval recipients", zap.String("record_id", rec.ID), zap.Error(err))
		return
	}
	recipients := make([]string, 0, len(members))
	for _, m := range members {
		recipients = append(recipients, m.UserID)
	}
	n := Notification{
		BusinessID: rec.BusinessID,
		RecordID:   rec.ID,
		Kind:       rec.Kind,
		Status:     rec.Status,
		Stage:      stage.Name,
		Role:       stage.Role,
		Recipients: recipients,
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.log.Error("deliver approval notification", zap.String("record_id", rec.ID), zap.Error(err))
	}
}

func signature(recordID, stage string, seq int, actor models.Actor, note string, at time.Time) models.ApprovalSignature {
	return models.ApprovalSignature{
		ID:        utils.NewID(),
		RecordID:  recordID,
		Stage:     stage,
		Seq:       seq,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		Note:      strings.TrimSpace(note),
		SignedAt:  at,
	}
}

func auditEntry(recordID string, seq int, status string, actor models.Actor, note string, at time.Time) models.ApprovalAuditEntry {
	return models.ApprovalAuditEntry{
		ID:        utils.NewID(),
		RecordID:  recordID,
		Seq:       seq,
		Timestamp: at,
		Status:    status,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		Note:      strings.TrimSpace(note),
	}
}
