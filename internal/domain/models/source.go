package models

import (
	"fmt"
	"sort"
)

// Source selects which OHLCV field feeds the band statistics.
type Source string

const (
	SourceClose Source = "close"
)

// sourceFields is the closed set of supported sources.
// A new source is one entry here; the band loop never changes.
var sourceFields = map[Source]func(OHLCV) float64{
	SourceClose: func(b OHLCV) float64 { return b.Close },
}

// Selector returns the field accessor for s, or false if s is not supported.
func (s Source) Selector() (func(OHLCV) float64, bool) {
	f, ok := sourceFields[s]
	return f, ok
}

// Valid reports whether s is a supported source.
func (s Source) Valid() bool {
	_, ok := sourceFields[s]
	return ok
}

// Sources lists the supported sources in a stable order.
func Sources() []Source {
	out := make([]Source, 0, len(sourceFields))
	for s := range sourceFields {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BollingerInputs configures one band computation.
type BollingerInputs struct {
	Length     int     `json:"length" yaml:"length"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Offset     int     `json:"offset" yaml:"offset"`
	Source     Source  `json:"source" yaml:"source"`
}

func (in BollingerInputs) String() string {
	return fmt.Sprintf("len=%d mult=%g off=%d src=%s", in.Length, in.Multiplier, in.Offset, in.Source)
}
