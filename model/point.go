package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Point is a position or direction in the chassis frame: X positive rearward,
// Y positive to the driver's right, Z positive up.
type Point = mgl64.Vec3

// Mirror reflects p through the chassis longitudinal (XZ) plane.
func Mirror(p Point) Point {
	return Point{p.X(), -p.Y(), p.Z()}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return a.Sub(b).Len()
}

// IsFinite reports whether every coordinate of p is a finite number.
func IsFinite(p Point) bool {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
