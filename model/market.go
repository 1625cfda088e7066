package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MarketData is the market summary of the coin in a single currency.
type MarketData struct {
	Currency          string    `json:"currency"`
	Price             float64   `json:"price"`
	MarketCap         float64   `json:"market_cap"`
	TotalVolume       float64   `json:"total_volume"`
	PriceChange24h    float64   `json:"price_change_24h"`
	CirculatingSupply float64   `json:"circulating_supply"`
	Rank              int       `json:"rank"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (m *MarketData) Validate() error {
	if m.Currency == "" {
		return errors.New("empty currency")
	}
	for _, v := range []float64{m.Price, m.MarketCap, m.TotalVolume} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid market value %v", v)
		}
	}
	return nil
}

// PricePoint is one sample of a price chart.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// MarketChart is a price history in a single currency.
type MarketChart struct {
	Currency string       `json:"currency"`
	Days     int          `json:"days"`
	Points   []PricePoint `json:"points"`
}

// Range returns the lowest and highest price of the chart.
func (c *MarketChart) Range() (low, high float64) {
	if len(c.Points) == 0 {
		return 0, 0
	}
	low, high = c.Points[0].Price, c.Points[0].Price
	for _, p := range c.Points[1:] {
		low = math.Min(low, p.Price)
		high = math.Max(high, p.Price)
	}
	return low, high
}

// Change returns the relative price change over the chart, 0.05 for 5%.
func (c *MarketChart) Change() float64 {
	if len(c.Points) < 2 || c.Points[0].Price == 0 {
		return 0
	}
	first, last := c.Points[0].Price, c.Points[len(c.Points)-1].Price
	return (last - first) / first
}
