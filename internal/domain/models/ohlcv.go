package models

// OHLCV is one time-indexed trading sample. Time is a unix timestamp in milliseconds.
type OHLCV struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// IsSorted reports whether series is strictly ascending by Time.
// It returns the first offending index when it is not.
func IsSorted(series []OHLCV) (int, bool) {
	for i := 1; i < len(series); i++ {
		if series[i].Time <= series[i-1].Time {
			return i, false
		}
	}
	return -1, true
}

// Quote is the latest price summary shown in a chart header.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Timeframe     string  `json:"timeframe"`
	Time          int64   `json:"time"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        float64 `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}
