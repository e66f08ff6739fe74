// Package points turns raw model output (per-pixel world coordinates and
// depth) into a filtered, colored point list ready for export.
//
// Depth values at or near zero are degenerate (on the camera), and very large
// values are almost always inference artifacts, so we keep only the cells
// whose depth lies strictly inside a fixed band. Colors are sampled from the
// source photograph, resized to match the model grid, and every filtering
// step is applied identically to coordinates and colors so the two stay
// index-aligned.
package points

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/bmharper/cimg/v2"
	"github.com/chewxy/math32"
	"github.com/golang/geo/r3"
	"github.com/mentralabs/scenecloud/pkg/recon"
)

// Depth band of the reconstruction model's output units. Exclusive on both ends.
const (
	DefaultNearLimit float32 = 0.01
	DefaultFarLimit  float32 = 10
)

var ErrNoValidPoints = errors.New("no valid points after depth filtering")

// ColorSample is one RGB triple as sampled, before integer normalization.
// Values are either 0..255 (byte pixels) or 0..1 (normalized float pixels).
type ColorSample [3]float32

// ValidityMask returns, for each depth value, whether near < depth < far
func ValidityMask(depth []float32, near, far float32) []bool {
	mask := make([]bool, len(depth))
	for i, d := range depth {
		mask[i] = d > near && d < far
	}
	return mask
}

// ExtractImage filters one image's point grid by its depth band and samples
// the matching pixel colors. The source image is resized to the grid
// dimensions when necessary, so grid cell (y,x) always maps to pixel (y,x).
// The returned slices are index-aligned and in row-major grid order.
func ExtractImage(grid *recon.PointGrid, img *cimg.Image, near, far float32) ([]r3.Vector, []ColorSample, error) {
	if err := grid.Validate(); err != nil {
		return nil, nil, err
	}
	rgb := img.ToRGB()
	if rgb.Width != grid.Width || rgb.Height != grid.Height {
		rgb = cimg.ResizeNew(rgb, grid.Width, grid.Height, nil)
	}

	mask := ValidityMask(grid.Depth, near, far)
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}

	pts := make([]r3.Vector, 0, n)
	cols := make([]ColorSample, 0, n)
	pixels := rgb.Pixels
	nchan := rgb.NChan()
	for i, ok := range mask {
		if !ok {
			continue
		}
		pts = append(pts, r3.Vector{
			X: float64(grid.XYZ[i*3]),
			Y: float64(grid.XYZ[i*3+1]),
			Z: float64(grid.XYZ[i*3+2]),
		})
		p := i * nchan
		cols = append(cols, ColorSample{
			float32(pixels[p]),
			float32(pixels[p+1]),
			float32(pixels[p+2]),
		})
	}
	return pts, cols, nil
}

// ExtractBatch runs ExtractImage over a whole prediction and concatenates the
// results in input image order. It is an error if no image yields any valid
// point, because the resulting cloud would be empty.
func ExtractBatch(pred *recon.Prediction, images []recon.LoadedImage, near, far float32) ([]r3.Vector, []ColorSample, error) {
	if len(pred.Grids) != len(images) {
		return nil, nil, fmt.Errorf("prediction has %v grids for %v images", len(pred.Grids), len(images))
	}
	allPts := []r3.Vector{}
	allCols := []ColorSample{}
	for i := range pred.Grids {
		pts, cols, err := ExtractImage(&pred.Grids[i], images[i].RGB, near, far)
		if err != nil {
			return nil, nil, fmt.Errorf("image %v (%v): %w", i, images[i].Path, err)
		}
		allPts = append(allPts, pts...)
		allCols = append(allCols, cols...)
	}
	if len(allPts) == 0 {
		return nil, nil, ErrNoValidPoints
	}
	return allPts, allCols, nil
}

// NormalizeColors converts sampled colors to 8-bit channels.
// If every channel in the set is <= 1.0, the samples are treated as
// normalized floats and scaled by 255 (rounded). Otherwise they are assumed
// to already be byte-valued and are truncated to integers.
func NormalizeColors(cols []ColorSample) []color.NRGBA {
	maxChan := float32(0)
	for _, c := range cols {
		maxChan = math32.Max(maxChan, math32.Max(c[0], math32.Max(c[1], c[2])))
	}
	out := make([]color.NRGBA, len(cols))
	if maxChan <= 1.0 {
		for i, c := range cols {
			out[i] = color.NRGBA{
				R: uint8(math32.Round(c[0] * 255)),
				G: uint8(math32.Round(c[1] * 255)),
				B: uint8(math32.Round(c[2] * 255)),
				A: 255,
			}
		}
	} else {
		for i, c := range cols {
			out[i] = color.NRGBA{
				R: uint8(c[0]),
				G: uint8(c[1]),
				B: uint8(c[2]),
				A: 255,
			}
		}
	}
	return out
}
