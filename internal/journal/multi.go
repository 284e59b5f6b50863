package journal

import (
	"context"
	"errors"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// MultiLog records each event to every sink. A failing sink does not stop the others.
type MultiLog []position.TradeLog

// Record forwards ev to all sinks and joins their errors
func (m MultiLog) Record(ctx context.Context, ev position.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
