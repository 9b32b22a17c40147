package model

// DailyBar is one daily OHLCV bar.
type DailyBar struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// StockSnapshot is a daily time series for one symbol. Bars are ordered
// most-recent-first as returned by the provider.
type StockSnapshot struct {
	Symbol        string
	LastRefreshed string
	Timezone      string
	Bars          []DailyBar
}
