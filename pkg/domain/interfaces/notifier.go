package interfaces

import (
	"context"

	"github.com/intake-lab/prosecoach/pkg/domain/model"
)

// Notifier delivers operator alerts about urgent safety detections. Delivery
// is best effort: a turn's outcome never depends on it.
type Notifier interface {
	NotifyUrgent(ctx context.Context, session *model.Session, flags []string) error
}
