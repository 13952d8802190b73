package models

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

// ErrInvalidSettings is returned by SettingsBuilder.Build for out-of-range values.
var ErrInvalidSettings = errors.New("invalid settings")

type LineStyle string

const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
)

// BandLineStyle describes how one band line is drawn.
type BandLineStyle struct {
	Visible bool      `json:"visible" yaml:"visible"`
	Color   string    `json:"color" yaml:"color"`
	Width   int       `json:"width" yaml:"width"`
	Style   LineStyle `json:"style" yaml:"style"`
}

// BandBackground describes the shaded region between upper and lower.
type BandBackground struct {
	Visible bool    `json:"visible" yaml:"visible"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
	Color   string  `json:"color" yaml:"color"`
}

// BollingerStyle is rendering configuration passed through to the chart unchanged.
type BollingerStyle struct {
	Basis      BandLineStyle  `json:"basis" yaml:"basis"`
	Upper      BandLineStyle  `json:"upper" yaml:"upper"`
	Lower      BandLineStyle  `json:"lower" yaml:"lower"`
	Background BandBackground `json:"background" yaml:"background"`
}

// Settings is the committed indicator configuration. It is a value type:
// changes go through SettingsBuilder and produce a new value.
type Settings struct {
	Inputs BollingerInputs `json:"inputs" yaml:"inputs"`
	Style  BollingerStyle  `json:"style" yaml:"style"`
}

// DefaultSettings returns the factory configuration.
func DefaultSettings() Settings {
	return Settings{
		Inputs: BollingerInputs{Length: 20, Multiplier: 2, Offset: 0, Source: SourceClose},
		Style: BollingerStyle{
			Basis:      BandLineStyle{Visible: true, Color: "#F59E0B", Width: 1, Style: LineSolid},
			Upper:      BandLineStyle{Visible: true, Color: "#10B981", Width: 1, Style: LineSolid},
			Lower:      BandLineStyle{Visible: true, Color: "#EF4444", Width: 1, Style: LineSolid},
			Background: BandBackground{Visible: true, Opacity: 0.12, Color: "#10B981"},
		},
	}
}

// SettingsBuilder assembles a new Settings value from a base.
type SettingsBuilder struct {
	s Settings
}

// NewSettingsBuilder starts from a copy of base.
func NewSettingsBuilder(base Settings) *SettingsBuilder {
	return &SettingsBuilder{s: base}
}

func (b *SettingsBuilder) Inputs(in BollingerInputs) *SettingsBuilder {
	b.s.Inputs = in
	return b
}

func (b *SettingsBuilder) Length(n int) *SettingsBuilder {
	b.s.Inputs.Length = n
	return b
}

func (b *SettingsBuilder) Multiplier(m float64) *SettingsBuilder {
	b.s.Inputs.Multiplier = m
	return b
}

func (b *SettingsBuilder) Offset(n int) *SettingsBuilder {
	b.s.Inputs.Offset = n
	return b
}

func (b *SettingsBuilder) Source(src Source) *SettingsBuilder {
	b.s.Inputs.Source = src
	return b
}

func (b *SettingsBuilder) Style(st BollingerStyle) *SettingsBuilder {
	b.s.Style = st
	return b
}

func (b *SettingsBuilder) Basis(ls BandLineStyle) *SettingsBuilder {
	b.s.Style.Basis = ls
	return b
}

func (b *SettingsBuilder) Upper(ls BandLineStyle) *SettingsBuilder {
	b.s.Style.Upper = ls
	return b
}

func (b *SettingsBuilder) Lower(ls BandLineStyle) *SettingsBuilder {
	b.s.Style.Lower = ls
	return b
}

func (b *SettingsBuilder) Background(bg BandBackground) *SettingsBuilder {
	b.s.Style.Background = bg
	return b
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Build validates the assembled value and returns it.
func (b *SettingsBuilder) Build() (Settings, error) {
	s := b.s
	if s.Inputs.Length < 1 {
		return Settings{}, fmt.Errorf("%w: length must be >= 1, got %d", ErrInvalidSettings, s.Inputs.Length)
	}
	if math.IsNaN(s.Inputs.Multiplier) || math.IsInf(s.Inputs.Multiplier, 0) {
		return Settings{}, fmt.Errorf("%w: multiplier must be finite, got %v", ErrInvalidSettings, s.Inputs.Multiplier)
	}
	if !s.Inputs.Source.Valid() {
		return Settings{}, fmt.Errorf("%w: unknown source %q", ErrInvalidSettings, s.Inputs.Source)
	}
	lines := []struct {
		name string
		ls   BandLineStyle
	}{{"basis", s.Style.Basis}, {"upper", s.Style.Upper}, {"lower", s.Style.Lower}}
	for _, l := range lines {
		if err := validateLine(l.name, l.ls); err != nil {
			return Settings{}, err
		}
	}
	bg := s.Style.Background
	if bg.Opacity < 0 || bg.Opacity > 1 {
		return Settings{}, fmt.Errorf("%w: background opacity must be within [0,1], got %g", ErrInvalidSettings, bg.Opacity)
	}
	if !hexColor.MatchString(bg.Color) {
		return Settings{}, fmt.Errorf("%w: background color %q is not #RRGGBB", ErrInvalidSettings, bg.Color)
	}
	return s, nil
}

func validateLine(name string, ls BandLineStyle) error {
	if ls.Width < 1 || ls.Width > 5 {
		return fmt.Errorf("%w: %s width must be within [1,5], got %d", ErrInvalidSettings, name, ls.Width)
	}
	if ls.Style != LineSolid && ls.Style != LineDashed {
		return fmt.Errorf("%w: %s style %q is not solid or dashed", ErrInvalidSettings, name, ls.Style)
	}
	if !hexColor.MatchString(ls.Color) {
		return fmt.Errorf("%w: %s color %q is not #RRGGBB", ErrInvalidSettings, name, ls.Color)
	}
	return nil
}
