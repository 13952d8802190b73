package repository

import "testing"

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"":    TF1d,
		"1s":  TF1s,
		"1m":  TF1m,
		"5m":  TF5m,
		"1d":  TF1d,
		"15m": TF1d,
	}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("NormalizeTimeframe(%q) = %q, want %q", in, got, want)
		}
	}
}
