// Package recon is the interface layer to the multi-view reconstruction
// model. The model itself is an external service: we hand it a batch of
// photographs and get back, per image, a dense grid of 3D world coordinates
// and a parallel grid of depth values.
package recon

import (
	"context"
	"fmt"
	"os"

	"github.com/bmharper/cimg/v2"
)

// LoadedImage is one decoded photograph of the batch
type LoadedImage struct {
	Path string      // Local filename the image was loaded from
	Raw  []byte      // Original encoded bytes (what we send to the model)
	RGB  *cimg.Image // Decoded 3-channel pixels (what we sample colors from)
}

// PointGrid is the model output for a single image: a dense H x W grid of
// world-space coordinates, and a parallel H x W grid of depth values.
// Both are row-major. XYZ holds x,y,z triples, so len(XYZ) = 3*len(Depth).
type PointGrid struct {
	Width  int
	Height int
	XYZ    []float32
	Depth  []float32
}

// Validate checks that the grid arrays agree with the declared dimensions
func (g *PointGrid) Validate() error {
	n := g.Width * g.Height
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid grid dimensions %vx%v", g.Width, g.Height)
	}
	if len(g.Depth) != n {
		return fmt.Errorf("depth grid has %v values, expected %v", len(g.Depth), n)
	}
	if len(g.XYZ) != 3*n {
		return fmt.Errorf("coordinate grid has %v values, expected %v", len(g.XYZ), 3*n)
	}
	return nil
}

// Prediction is the model output for a whole batch, one grid per input image,
// in input order. Read-only once produced.
type Prediction struct {
	Grids []PointGrid
}

// Model is a reconstruction model. Implementations are expected to be
// a single blocking forward pass; there is no streaming or cancellation
// beyond the context.
type Model interface {
	Infer(ctx context.Context, images []LoadedImage) (*Prediction, error)
}

// LoadImages decodes the given files and converts them to RGB
func LoadImages(paths []string) ([]LoadedImage, error) {
	images := make([]LoadedImage, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		img, err := cimg.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Failed to decode image %v: %w", path, err)
		}
		images = append(images, LoadedImage{
			Path: path,
			Raw:  raw,
			RGB:  img.ToRGB(),
		})
	}
	return images, nil
}
