package tools

import (
	"github.com/shopspring/decimal"
)

// VolumeScale is the fixed-point factor the remote uses for lot volumes.
const VolumeScale int64 = 10000

const _volumePlaces = 2

// ScaleVolume converts a remote fixed-point volume into lots rounded to 2 places.
func ScaleVolume(raw uint64) float64 {
	v := decimal.NewFromInt(int64(raw)).
		Div(decimal.NewFromInt(VolumeScale)).
		Round(_volumePlaces)
	f, _ := v.Float64()
	return f
}

// RoundVolume rounds an already scaled volume (e.g. a SQL sum) to 2 places.
func RoundVolume(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(_volumePlaces).Float64()
	return f
}
