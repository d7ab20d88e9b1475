package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleVolume(t *testing.T) {
	tests := []struct {
		raw  uint64
		want float64
	}{
		{raw: 10000, want: 1.00},
		{raw: 25000, want: 2.50},
		{raw: 5000, want: 0.50},
		{raw: 1, want: 0},
		{raw: 12345, want: 1.23},
		{raw: 12355, want: 1.24},
		{raw: 0, want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ScaleVolume(tt.raw), "raw=%d", tt.raw)
	}
}

func TestRoundVolume(t *testing.T) {
	assert.Equal(t, 3.0, RoundVolume(1.0+2.0))
	assert.Equal(t, 0.3, RoundVolume(0.1+0.2))
}
