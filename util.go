package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	mrand "math/rand"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

const colourDigits = "0123456789ABCDEF"

// RandomColour returns a random "#RRGGBB" hex colour. Colours are
// assigned server-side exactly once per member and never re-rolled.
func RandomColour() string {
	b := make([]byte, 7)
	b[0] = '#'
	for i := 1; i < 7; i++ {
		b[i] = colourDigits[mrand.Intn(16)]
	}
	return string(b)
}

// randFloat returns a uniform float in [0,1)
func randFloat() float64 {
	return mrand.Float64()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceSq returns the squared distance between two positions
func DistanceSq(a, b Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}
