package models

// Requests for chart HTTP endpoints. Band inputs (length, multiplier, offset, source)
// are read separately so that an explicit zero is never replaced by a default.

type SeriesRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
	TF     string `query:"tf" json:"tf" default:"1d" validate:"oneof=1s 1m 5m 1d"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
	TF     string `query:"tf" json:"tf" default:"1d" validate:"oneof=1s 1m 5m 1d"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=50000"`
}

type BandsRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
	TF     string `query:"tf" json:"tf" default:"1d" validate:"oneof=1s 1m 5m 1d"`
	Limit  int    `query:"limit" json:"limit" validate:"gte=0,lte=50000"`
}

type LineStyleRequest struct {
	Visible bool   `json:"visible"`
	Color   string `json:"color" default:"#10B981" validate:"hexcolor"`
	Width   int    `json:"width" default:"1" validate:"gte=1,lte=5"`
	Style   string `json:"style" default:"solid" validate:"oneof=solid dashed"`
}

type BackgroundRequest struct {
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity" validate:"gte=0,lte=1"`
	Color   string  `json:"color" default:"#10B981" validate:"hexcolor"`
}

type SettingsRequest struct {
	Inputs struct {
		Length     int     `json:"length" validate:"gte=1"`
		Multiplier float64 `json:"multiplier"`
		Offset     int     `json:"offset"`
		Source     string  `json:"source" default:"close" validate:"required"`
	} `json:"inputs"`
	Style struct {
		Basis      LineStyleRequest  `json:"basis"`
		Upper      LineStyleRequest  `json:"upper"`
		Lower      LineStyleRequest  `json:"lower"`
		Background BackgroundRequest `json:"background"`
	} `json:"style"`
}

// Settings converts the request into a domain value via the builder.
func (r *SettingsRequest) Settings() (Settings, error) {
	line := func(l LineStyleRequest) BandLineStyle {
		return BandLineStyle{Visible: l.Visible, Color: l.Color, Width: l.Width, Style: LineStyle(l.Style)}
	}
	return NewSettingsBuilder(DefaultSettings()).
		Inputs(BollingerInputs{
			Length:     r.Inputs.Length,
			Multiplier: r.Inputs.Multiplier,
			Offset:     r.Inputs.Offset,
			Source:     Source(r.Inputs.Source),
		}).
		Basis(line(r.Style.Basis)).
		Upper(line(r.Style.Upper)).
		Lower(line(r.Style.Lower)).
		Background(BandBackground{
			Visible: r.Style.Background.Visible,
			Opacity: r.Style.Background.Opacity,
			Color:   r.Style.Background.Color,
		}).
		Build()
}
