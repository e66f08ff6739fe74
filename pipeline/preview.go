package pipeline

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"
	"github.com/mentralabs/scenecloud/pkg/points"
)

// RenderPreview draws a top-down orthographic scatter of the cloud (X right,
// Z down) into a square PNG. It's a sanity-check artifact, not a viewer.
func RenderPreview(path string, pts []r3.Vector, cols []color.NRGBA, size int) error {
	if len(pts) == 0 {
		return fmt.Errorf("cannot render preview of an empty cloud")
	}
	b := points.CloudBounds(pts)
	spanX := b.Max.X - b.Min.X
	spanZ := b.Max.Z - b.Min.Z
	span := spanX
	if spanZ > span {
		span = spanZ
	}
	if span == 0 {
		span = 1
	}
	// 5% margin on all sides
	scale := float64(size) * 0.9 / span
	offset := float64(size) * 0.05

	dc := gg.NewContext(size, size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	for i, p := range pts {
		x := offset + (p.X-b.Min.X)*scale
		y := offset + (p.Z-b.Min.Z)*scale
		dc.SetColor(cols[i])
		dc.SetPixel(int(x), int(y))
	}
	return dc.SavePNG(path)
}
