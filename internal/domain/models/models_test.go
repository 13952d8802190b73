package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandPointJSONNulls(t *testing.T) {
	b, err := json.Marshal([]BandPoint{UndefinedPoint(1), {Time: 2, Basis: 1.5, Upper: 2, Lower: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"time":1,"basis":null,"upper":null,"lower":null},{"time":2,"basis":1.5,"upper":2,"lower":1}]`, string(b))

	var back []BandPoint
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back, 2)
	assert.False(t, back[0].Defined())
	assert.True(t, math.IsNaN(back[0].Upper))
	assert.True(t, back[1].Defined())
	assert.Equal(t, 1.5, back[1].Basis)
}

func TestIsSorted(t *testing.T) {
	idx, ok := IsSorted([]OHLCV{{Time: 1}, {Time: 2}, {Time: 3}})
	assert.True(t, ok)
	assert.Equal(t, -1, idx)

	idx, ok = IsSorted([]OHLCV{{Time: 1}, {Time: 3}, {Time: 3}})
	assert.False(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = IsSorted(nil)
	assert.True(t, ok)
}

func TestSourceSelector(t *testing.T) {
	pick, ok := SourceClose.Selector()
	require.True(t, ok)
	assert.Equal(t, 7.0, pick(OHLCV{Open: 1, Close: 7}))

	_, ok = Source("open_interest").Selector()
	assert.False(t, ok)
	assert.False(t, Source("").Valid())
}

func TestSettingsBuilderDoesNotMutateBase(t *testing.T) {
	base := DefaultSettings()
	next, err := NewSettingsBuilder(base).Length(50).Multiplier(2.5).Offset(-3).Build()
	require.NoError(t, err)

	assert.Equal(t, 20, base.Inputs.Length)
	assert.Equal(t, 50, next.Inputs.Length)
	assert.Equal(t, 2.5, next.Inputs.Multiplier)
	assert.Equal(t, -3, next.Inputs.Offset)
	assert.Equal(t, base.Style, next.Style)
}

func TestSettingsBuilderValidation(t *testing.T) {
	base := DefaultSettings()
	bad := map[string]*SettingsBuilder{
		"length":     NewSettingsBuilder(base).Length(0),
		"source":     NewSettingsBuilder(base).Source("hlc3"),
		"nan":        NewSettingsBuilder(base).Multiplier(math.NaN()),
		"inf":        NewSettingsBuilder(base).Multiplier(math.Inf(1)),
		"width":      NewSettingsBuilder(base).Upper(BandLineStyle{Visible: true, Color: "#000000", Width: 9, Style: LineSolid}),
		"style":      NewSettingsBuilder(base).Lower(BandLineStyle{Visible: true, Color: "#000000", Width: 1, Style: "dotted"}),
		"color":      NewSettingsBuilder(base).Basis(BandLineStyle{Visible: true, Color: "orange", Width: 1, Style: LineSolid}),
		"opacity":    NewSettingsBuilder(base).Background(BandBackground{Visible: true, Opacity: 1.5, Color: "#10B981"}),
		"background": NewSettingsBuilder(base).Background(BandBackground{Visible: true, Opacity: 0.5, Color: "#10B9"}),
	}
	for name, b := range bad {
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrInvalidSettings, name)
	}

	// multiplier and offset are unconstrained
	_, err := NewSettingsBuilder(base).Multiplier(-4).Offset(-1000).Build()
	assert.NoError(t, err)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, BollingerInputs{Length: 20, Multiplier: 2, Offset: 0, Source: SourceClose}, s.Inputs)
	assert.Equal(t, "#F59E0B", s.Style.Basis.Color)
	assert.Equal(t, "#10B981", s.Style.Upper.Color)
	assert.Equal(t, "#EF4444", s.Style.Lower.Color)
	assert.InDelta(t, 0.12, s.Style.Background.Opacity, 1e-12)
	_, err := NewSettingsBuilder(s).Build()
	assert.NoError(t, err)
}

func TestSettingsRequestToSettings(t *testing.T) {
	var r SettingsRequest
	r.Inputs.Length = 10
	r.Inputs.Multiplier = 1
	r.Inputs.Source = "close"
	r.Style.Basis = LineStyleRequest{Visible: true, Color: "#111111", Width: 2, Style: "dashed"}
	r.Style.Upper = LineStyleRequest{Visible: false, Color: "#222222", Width: 1, Style: "solid"}
	r.Style.Lower = LineStyleRequest{Visible: true, Color: "#333333", Width: 3, Style: "solid"}
	r.Style.Background = BackgroundRequest{Visible: false, Opacity: 0, Color: "#444444"}

	s, err := r.Settings()
	require.NoError(t, err)
	assert.Equal(t, 10, s.Inputs.Length)
	assert.Equal(t, LineDashed, s.Style.Basis.Style)
	assert.False(t, s.Style.Upper.Visible)
	assert.Equal(t, "#444444", s.Style.Background.Color)
}
