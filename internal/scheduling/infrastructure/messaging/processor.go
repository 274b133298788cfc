package messaging

import (
	"log/slog"

	"github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/outbox"
)

// NewOutboxProcessor wires the shared outbox processor to publisher,
// draining every scheduling domain event a RunScheduleCommand recorded. The
// processor itself is domain-agnostic; only the publisher and the outbox
// repository's backing table are scheduling-specific.
func NewOutboxProcessor(repo outbox.Repository, publisher eventbus.Publisher, logger *slog.Logger) *outbox.Processor {
	return outbox.NewProcessor(repo, publisher, outbox.DefaultProcessorConfig(), logger)
}
