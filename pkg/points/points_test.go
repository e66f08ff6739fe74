package points

import (
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/mentralabs/scenecloud/pkg/recon"
	"github.com/stretchr/testify/require"
)

// makeTestImage builds a W x H RGB image where pixel (y,x) has
// R = y*16, G = x*16, B = 7, so every pixel is identifiable after filtering
func makeTestImage(width, height int) *cimg.Image {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := (y*width + x) * 3
			img.Pixels[p] = uint8(y * 16)
			img.Pixels[p+1] = uint8(x * 16)
			img.Pixels[p+2] = 7
		}
	}
	return img
}

// makeTestGrid builds a grid where cell i has coordinates (i, i+0.5, i+0.25)
func makeTestGrid(width, height int, depth []float32) recon.PointGrid {
	n := width * height
	xyz := make([]float32, 3*n)
	for i := 0; i < n; i++ {
		xyz[i*3] = float32(i)
		xyz[i*3+1] = float32(i) + 0.5
		xyz[i*3+2] = float32(i) + 0.25
	}
	return recon.PointGrid{
		Width:  width,
		Height: height,
		XYZ:    xyz,
		Depth:  depth,
	}
}

func TestValidityMask(t *testing.T) {
	// 2x2 grid, row-major
	depth := []float32{0.005, 5.0, 12.0, 0.02}
	mask := ValidityMask(depth, DefaultNearLimit, DefaultFarLimit)
	require.Equal(t, []bool{false, true, false, true}, mask)

	// The band is exclusive on both ends
	edges := []float32{0.01, 10, 0.010001, 9.9999, 0, -3}
	mask = ValidityMask(edges, DefaultNearLimit, DefaultFarLimit)
	require.Equal(t, []bool{false, false, true, true, false, false}, mask)
}

func TestExtractImageAlignment(t *testing.T) {
	depth := []float32{0.005, 5.0, 12.0, 0.02}
	grid := makeTestGrid(2, 2, depth)
	img := makeTestImage(2, 2)

	pts, cols, err := ExtractImage(&grid, img, DefaultNearLimit, DefaultFarLimit)
	require.NoError(t, err)
	require.Len(t, pts, 2)
	require.Len(t, cols, 2)

	// Survivors are cells 1 and 3, in row-major order
	require.Equal(t, float64(1), pts[0].X)
	require.Equal(t, float64(3), pts[1].X)
	// Cell 1 is pixel (y=0, x=1); cell 3 is pixel (y=1, x=1)
	require.Equal(t, ColorSample{0, 16, 7}, cols[0])
	require.Equal(t, ColorSample{16, 16, 7}, cols[1])
}

func TestExtractImageResizes(t *testing.T) {
	// Image is 4x4 but the grid is 2x2: the image must be resized so pixel
	// indices line up with grid cells
	depth := []float32{5, 5, 5, 5}
	grid := makeTestGrid(2, 2, depth)
	img := makeTestImage(4, 4)

	pts, cols, err := ExtractImage(&grid, img, DefaultNearLimit, DefaultFarLimit)
	require.NoError(t, err)
	require.Len(t, pts, 4)
	require.Len(t, cols, 4)
}

func TestExtractBatchOrdering(t *testing.T) {
	depthA := []float32{5, 0.001, 5, 5}
	depthB := []float32{11, 5, 5, 5}
	pred := &recon.Prediction{
		Grids: []recon.PointGrid{
			makeTestGrid(2, 2, depthA),
			makeTestGrid(2, 2, depthB),
		},
	}
	images := []recon.LoadedImage{
		{Path: "a.jpg", RGB: makeTestImage(2, 2)},
		{Path: "b.jpg", RGB: makeTestImage(2, 2)},
	}
	pts, cols, err := ExtractBatch(pred, images, DefaultNearLimit, DefaultFarLimit)
	require.NoError(t, err)
	require.Len(t, pts, 6)
	require.Len(t, cols, 6)

	// First image's survivors (cells 0,2,3) precede second image's (cells 1,2,3)
	require.Equal(t, float64(0), pts[0].X)
	require.Equal(t, float64(2), pts[1].X)
	require.Equal(t, float64(3), pts[2].X)
	require.Equal(t, float64(1), pts[3].X)
	require.Equal(t, float64(2), pts[4].X)
	require.Equal(t, float64(3), pts[5].X)
}

func TestExtractBatchNoValidPoints(t *testing.T) {
	depth := []float32{0.001, 0.002, 11, 200}
	pred := &recon.Prediction{
		Grids: []recon.PointGrid{makeTestGrid(2, 2, depth)},
	}
	images := []recon.LoadedImage{
		{Path: "a.jpg", RGB: makeTestImage(2, 2)},
	}
	_, _, err := ExtractBatch(pred, images, DefaultNearLimit, DefaultFarLimit)
	require.ErrorIs(t, err, ErrNoValidPoints)
}

func TestExtractBatchGridCountMismatch(t *testing.T) {
	pred := &recon.Prediction{
		Grids: []recon.PointGrid{makeTestGrid(2, 2, []float32{5, 5, 5, 5})},
	}
	_, _, err := ExtractBatch(pred, nil, DefaultNearLimit, DefaultFarLimit)
	require.Error(t, err)
}

func TestNormalizeColorsFloat(t *testing.T) {
	cols := []ColorSample{
		{0, 0.5, 1.0},
		{0.25, 0.999, 0.001},
	}
	out := NormalizeColors(cols)
	require.Len(t, out, 2)
	require.EqualValues(t, 0, out[0].R)
	require.EqualValues(t, 128, out[0].G) // round(0.5*255) = 128
	require.EqualValues(t, 255, out[0].B)
	require.EqualValues(t, 64, out[1].R) // round(0.25*255) = 64
	require.EqualValues(t, 255, out[1].G)
	require.EqualValues(t, 0, out[1].B)
}

func TestNormalizeColorsByte(t *testing.T) {
	// A single channel over 1.0 means the whole set is byte-valued: truncate, don't scale
	cols := []ColorSample{
		{0.5, 1.0, 2.0},
		{254.9, 17, 0},
	}
	out := NormalizeColors(cols)
	require.EqualValues(t, 0, out[0].R)
	require.EqualValues(t, 1, out[0].G)
	require.EqualValues(t, 2, out[0].B)
	require.EqualValues(t, 254, out[1].R)
	require.EqualValues(t, 17, out[1].G)
}

func TestCloudBounds(t *testing.T) {
	depth := []float32{5, 5, 5, 5}
	grid := makeTestGrid(2, 2, depth)
	img := makeTestImage(2, 2)
	pts, _, err := ExtractImage(&grid, img, DefaultNearLimit, DefaultFarLimit)
	require.NoError(t, err)

	b := CloudBounds(pts)
	require.Equal(t, float64(0), b.Min.X)
	require.Equal(t, float64(3), b.Max.X)
	require.Equal(t, 0.5, b.Min.Y)
	require.Equal(t, 3.5, b.Max.Y)
	require.Equal(t, 0.25, b.Min.Z)
	require.Equal(t, 3.25, b.Max.Z)

	require.Equal(t, Bounds{}, CloudBounds(nil))
}
