package pricing

import (
	"sort"

	"github.com/openbid/auction-api/internal/types"
	"github.com/shopspring/decimal"
)

// Outcome is the publicly visible auction state derived from a set of active
// auto-bids. A nil WinnerID means no active bidders.
type Outcome struct {
	WinnerID      *int64
	Price         decimal.Decimal
	ActiveBidders int
}

// Rank orders auto-bids for price computation: maximum amount descending, with
// equal maximums resolved in favour of the earliest-created entry. Row id is
// the final tie-break so the ordering is total regardless of clock precision.
// The input slice is not modified.
func Rank(entries []types.AutoBid) []types.AutoBid {
	ranked := make([]types.AutoBid, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		cmp := ranked[i].MaxAmount.Cmp(ranked[j].MaxAmount)
		if cmp != 0 {
			return cmp > 0
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ID < ranked[j].ID
	})

	return ranked
}

// Compute derives the visible price and winner from the active auto-bids of a
// product using second-price proxy rules:
//
//   - no bidders: no winner, price is the start price
//   - one bidder: that bidder wins at the start price
//   - otherwise: the top-ranked bidder wins at one step above the runner-up's
//     maximum, capped at their own maximum and floored at the start price
//
// Compute is pure and idempotent; it ranks its input itself so the result
// never depends on storage-level sort behaviour.
func Compute(entries []types.AutoBid, startPrice, stepPrice decimal.Decimal) Outcome {
	ranked := Rank(entries)

	if len(ranked) == 0 {
		return Outcome{Price: startPrice}
	}

	winner := ranked[0]
	if len(ranked) == 1 {
		return Outcome{
			WinnerID:      &winner.BidderID,
			Price:         startPrice,
			ActiveBidders: 1,
		}
	}

	runnerUp := ranked[1]
	price := runnerUp.MaxAmount.Add(stepPrice)
	if price.GreaterThan(winner.MaxAmount) {
		price = winner.MaxAmount
	}
	if price.LessThan(startPrice) {
		price = startPrice
	}

	return Outcome{
		WinnerID:      &winner.BidderID,
		Price:         price,
		ActiveBidders: len(ranked),
	}
}
