package models

import (
	"encoding/json"
	"math"
	"time"
)

// BandPoint is one element of a computed Bollinger series.
// Fields that cannot be computed hold NaN; see Defined.
type BandPoint struct {
	Time  int64
	Basis float64
	Upper float64
	Lower float64
}

// UndefinedPoint returns a point at t with every band field undefined.
func UndefinedPoint(t int64) BandPoint {
	nan := math.NaN()
	return BandPoint{Time: t, Basis: nan, Upper: nan, Lower: nan}
}

// Defined reports whether all three band fields are finite numbers.
func (p BandPoint) Defined() bool {
	return isFinite(p.Basis) && isFinite(p.Upper) && isFinite(p.Lower)
}

type bandPointJSON struct {
	Time  int64    `json:"time"`
	Basis *float64 `json:"basis"`
	Upper *float64 `json:"upper"`
	Lower *float64 `json:"lower"`
}

// MarshalJSON writes undefined fields as null.
func (p BandPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(bandPointJSON{
		Time:  p.Time,
		Basis: NullableFloat(p.Basis),
		Upper: NullableFloat(p.Upper),
		Lower: NullableFloat(p.Lower),
	})
}

// UnmarshalJSON maps null fields back to NaN.
func (p *BandPoint) UnmarshalJSON(b []byte) error {
	var raw bandPointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Time = raw.Time
	p.Basis = floatOrNaN(raw.Basis)
	p.Upper = floatOrNaN(raw.Upper)
	p.Lower = floatOrNaN(raw.Lower)
	return nil
}

// NullableFloat returns nil for NaN and infinities so they encode as JSON null.
func NullableFloat(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BandSnapshot is a computed band series together with the inputs that produced it.
type BandSnapshot struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	Inputs     BollingerInputs `json:"inputs"`
	ComputedAt time.Time       `json:"computed_at"`
	Points     []BandPoint     `json:"points"`
}
