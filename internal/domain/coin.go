package domain

// USDQuote is a single-currency price point as delivered by the market
// data API (only the USD leg is requested).
type USDQuote struct {
	USD float64 `json:"usd"`
}

// CoinImage holds the icon URLs attached to a coin document.
type CoinImage struct {
	Thumb string `json:"thumb"`
	Small string `json:"small"`
	Large string `json:"large"`
}

// CoinMarketData is the market_data block of a coin document.
type CoinMarketData struct {
	CurrentPrice      USDQuote `json:"current_price"`
	High24h           USDQuote `json:"high_24h"`
	Low24h            USDQuote `json:"low_24h"`
	MarketCap         USDQuote `json:"market_cap"`
	TotalVolume       USDQuote `json:"total_volume"`
	CirculatingSupply float64  `json:"circulating_supply"`
	ChangePct24h      float64  `json:"price_change_percentage_24h"`
}

// Coin mirrors the per-coin document returned by the market data API.
// It is read-only from the client's perspective: each poll replaces the
// whole list, there is no partial update.
type Coin struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	MarketCapRank int             `json:"market_cap_rank"`
	Image         CoinImage       `json:"image"`
	MarketData    *CoinMarketData `json:"market_data"`
}

// PriceUSD returns the current USD price, zero when market data is absent.
func (c *Coin) PriceUSD() float64 {
	if c.MarketData == nil {
		return 0
	}
	return c.MarketData.CurrentPrice.USD
}

// Change24h returns the 24h change percentage, zero when market data is absent.
func (c *Coin) Change24h() float64 {
	if c.MarketData == nil {
		return 0
	}
	return c.MarketData.ChangePct24h
}

// ChangeDirection returns "positive", "negative", or "neutral" for the
// 24h change.
func (c *Coin) ChangeDirection() string {
	change := c.Change24h()
	switch {
	case change > 0:
		return "positive"
	case change < 0:
		return "negative"
	default:
		return "neutral"
	}
}

// FindCoin returns the coin with the given id from a list, nil if the
// id was not part of the latest poll.
func FindCoin(coins []Coin, id string) *Coin {
	for i := range coins {
		if coins[i].ID == id {
			return &coins[i]
		}
	}
	return nil
}
