package messaging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
)

// LogPublisher deja los eventos en el log; es el publicador de una sola terminal.
type LogPublisher struct {
	log zerolog.Logger
}

var _ inventory.EventPublisher = LogPublisher{}

func NewLogPublisher(log zerolog.Logger) LogPublisher {
	return LogPublisher{log: log}
}

func (p LogPublisher) Publish(_ context.Context, events ...inventory.Event) error {
	for _, ev := range events {
		p.log.Debug().
			Str("event", ev.Type).
			Str("product_id", ev.ProductID).
			Str("branch_id", ev.BranchID).
			Int64("delta", ev.Delta).
			Int64("stock", ev.Stock).
			Int64("reserved", ev.Reserved).
			Str("ref_id", ev.RefID).
			Msg("evento")
	}
	return nil
}
