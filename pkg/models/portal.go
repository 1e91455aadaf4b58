package models

// GlobalStats is the payload behind the portal's global market bar.
type GlobalStats struct {
	OK     bool     `json:"ok"`
	Stale  bool     `json:"stale"`
	BTCDom *float64 `json:"btcDom"`
	ETHDom *float64 `json:"ethDom"`
	Mcap   *float64 `json:"mcap"`
	Vol24h *float64 `json:"vol24h"`
	TS     int64    `json:"ts"`
	Error  string   `json:"error,omitempty"`
}

// PriceRow is one coin on the portal price board.
type PriceRow struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	Change24h *float64 `json:"change24h"`
	TS        int64    `json:"ts"`
}

// PriceBoard is the full price-board payload.
type PriceBoard struct {
	OK    bool       `json:"ok"`
	Stale bool       `json:"stale"`
	Rows  []PriceRow `json:"rows"`
	TS    int64      `json:"ts"`
	Error string     `json:"error,omitempty"`
}

// FearGreedReading is the Fear & Greed index with its upstream label.
type FearGreedReading struct {
	Value     int    `json:"value"`
	Label     string `json:"label"`
	UpdatedAt int64  `json:"updatedAt"`
}

// AltseasonReading is the BlockchainCenter altseason score.
// 0 means bitcoin season, 100 means altseason.
type AltseasonReading struct {
	Value int `json:"value"`
}

// Sentiment aggregates the portal's sentiment widgets. Either leg may be
// null when its upstream is unavailable.
type Sentiment struct {
	FearGreed     *FearGreedReading `json:"fearGreed"`
	Altseason     *AltseasonReading `json:"altseason"`
	RevalidatedAt int64             `json:"revalidatedAt"`
	Error         string            `json:"error,omitempty"`
}

// FuturesSummary is the BTC futures snapshot used by the portal header.
// Each leg degrades to null independently.
type FuturesSummary struct {
	OpenInterest   *float64          `json:"openInterest"`
	FundingRate    *float64          `json:"fundingRate"`
	LongShortRatio *float64          `json:"longShortRatio"`
	FearGreed      *FearGreedReading `json:"fearGreed"`
	TS             int64             `json:"ts"`
}
