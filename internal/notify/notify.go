package notify

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// BidEvent describes an observable change to a product's public auction state.
// The dispatcher hands it to sinks (mailers, websockets) outside this core;
// the core itself performs no network calls.
type BidEvent struct {
	ProductID         int64
	NewLeadingBidder  *int64
	PrevLeadingBidder *int64
	VisiblePrice      decimal.Decimal
}

// Sink consumes bid events. Implementations must not block for long; slow
// sinks cause events to be dropped, never bids to fail.
type Sink func(event BidEvent)

// Dispatcher fans bid events out to registered sinks on a background
// goroutine. Publishing is fire-and-forget: a full buffer drops the event.
type Dispatcher struct {
	events chan BidEvent
	sinks  []Sink
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		events: make(chan BidEvent, buffer),
		sinks:  sinks,
	}
}

// Publish enqueues an event without blocking the caller.
func (d *Dispatcher) Publish(event BidEvent) {
	select {
	case d.events <- event:
	default:
		log.Warn().
			Int64("product_id", event.ProductID).
			Msg("notification buffer full, dropping bid event")
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	logger := log.With().Str("component", "notify_dispatcher").Logger()
	logger.Info().Msg("starting bid event dispatcher")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down bid event dispatcher")
			return
		case event := <-d.events:
			for _, sink := range d.sinks {
				sink(event)
			}
		}
	}
}

// LogSink records bid events in the operator log. It stands in for the
// external email/push notifier in deployments without one.
func LogSink(event BidEvent) {
	entry := log.Info().
		Int64("product_id", event.ProductID).
		Str("visible_price", event.VisiblePrice.String())
	if event.NewLeadingBidder != nil {
		entry = entry.Int64("new_leading_bidder", *event.NewLeadingBidder)
	}
	if event.PrevLeadingBidder != nil {
		entry = entry.Int64("prev_leading_bidder", *event.PrevLeadingBidder)
	}
	entry.Msg("auction state changed")
}
