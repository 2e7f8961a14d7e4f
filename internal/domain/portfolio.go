package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Holdings is the local mirror of the per-user portfolio collection:
// coin id mapped to owned quantity. Quantities are non-negative
// accumulators; each add is a remote atomic increment, never an
// overwrite.
type Holdings map[string]decimal.Decimal

// Clone returns a copy safe to hand out to callers.
func (h Holdings) Clone() Holdings {
	out := make(Holdings, len(h))
	for id, qty := range h {
		out[id] = qty
	}
	return out
}

// HoldingView joins one holding against the in-memory coin list. Coin
// is nil when the id was not part of the latest poll; its value is then
// treated as zero.
type HoldingView struct {
	CoinID   string
	Quantity decimal.Decimal
	Coin     *Coin
}

// ValueUSD is quantity times current USD price, zero when no price is
// known.
func (v HoldingView) ValueUSD() decimal.Decimal {
	if v.Coin == nil {
		return decimal.Zero
	}
	return v.Quantity.Mul(decimal.NewFromFloat(v.Coin.PriceUSD()))
}

// BuildHoldingsView joins holdings with quantity > 0 against the coin
// list, sorted by coin id for stable rendering.
func BuildHoldingsView(holdings Holdings, coins []Coin) []HoldingView {
	views := make([]HoldingView, 0, len(holdings))
	for id, qty := range holdings {
		if !qty.IsPositive() {
			continue
		}
		views = append(views, HoldingView{
			CoinID:   id,
			Quantity: qty,
			Coin:     FindCoin(coins, id),
		})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CoinID < views[j].CoinID
	})
	return views
}

// TotalValueUSD sums quantity times price over a holdings view. It is
// always derived from current state, never stored independently.
func TotalValueUSD(views []HoldingView) decimal.Decimal {
	total := decimal.Zero
	for _, v := range views {
		total = total.Add(v.ValueUSD())
	}
	return total
}
