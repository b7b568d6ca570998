package approval

import (
	"context"

	"fintab-pos/internal/models"

	"go.uber.org/zap"
)

// Notification tells the holders of a workflow role that a record waits on them.
type Notification struct {
	BusinessID string   `json:"business_id"`
	RecordID   string   `json:"record_id"`
	Kind       string   `json:"kind"`
	Status     string   `json:"status"`
	Stage      string   `json:"stage"`
	Role       string   `json:"role"`
	Recipients []string `json:"recipients"`
}

// Notifier delivers notifications. Delivery is outside this service.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Directory resolves the members who may sign for a workflow role.
type Directory interface {
	Recipients(ctx context.Context, businessID, role string) ([]models.Membership, error)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, note Notification) error {
	n.Log.Info("approval waiting",
		zap.String("record_id", note.RecordID),
		zap.String("kind", note.Kind),
		zap.String("stage", note.Stage),
		zap.Strings("recipients", note.Recipients))
	return nil
}
