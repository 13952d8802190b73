package models

// OverlayPoint is one vertex of a chart polyline. A nil Value is a gap.
type OverlayPoint struct {
	Timestamp int64    `json:"timestamp"`
	Value     *float64 `json:"value"`
}

// OverlayLine is a polyline overlay handed to the chart widget.
type OverlayLine struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Lock   bool           `json:"lock"`
	Color  string         `json:"color"`
	Size   int            `json:"size"`
	Style  LineStyle      `json:"style"`
	Points []OverlayPoint `json:"points"`
}

// Overlay is everything the chart needs to draw the band indicator.
type Overlay struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	Inputs     BollingerInputs `json:"inputs"`
	Lines      []OverlayLine   `json:"lines"`
	Background *BandBackground `json:"background,omitempty"`
}
