package command

import (
	"log/slog"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// publishEvent sends a domain event after the state change has been
// committed. Delivery is best effort: a failed publish must not fail the
// command, so the error is only logged.
func publishEvent(p shared.EventPublisher, e shared.Event) {
	if err := p.Publish(e); err != nil {
		slog.Warn("event publish failed",
			"event_type", string(e.EventType()),
			"aggregate_id", e.AggregateID(),
			"error", err,
		)
	}
}
