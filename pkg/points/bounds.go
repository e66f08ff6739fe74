package points

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
)

// Bounds is the axis-aligned extent of a point set
type Bounds struct {
	Min r3.Vector
	Max r3.Vector
}

func (b Bounds) String() string {
	return fmt.Sprintf("X [%.2f, %.2f]  Y [%.2f, %.2f]  Z [%.2f, %.2f]",
		b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z)
}

// CloudBounds computes per-axis min/max over the point set.
// Returns the zero Bounds for an empty set.
func CloudBounds(pts []r3.Vector) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	zs := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
		ys[i] = p.Y
		zs[i] = p.Z
	}
	return Bounds{
		Min: r3.Vector{X: floats.Min(xs), Y: floats.Min(ys), Z: floats.Min(zs)},
		Max: r3.Vector{X: floats.Max(xs), Y: floats.Max(ys), Z: floats.Max(zs)},
	}
}
