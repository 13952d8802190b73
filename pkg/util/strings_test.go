package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, -3, ParseIntDefault("-3", 7))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitCSV(" a:9092, ,b:9092,"))
	assert.Empty(t, SplitCSV(""))
}
