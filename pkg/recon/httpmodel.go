package recon

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pkg/requests"
)

// HTTPModel invokes a reconstruction model served over HTTP (eg a VGGT
// service on a GPU box). One POST per batch, blocking until inference
// finishes.
type HTTPModel struct {
	endpoint string // eg http://gpu-box:9090/v1/reconstruct
	log      logs.Log
}

func NewHTTPModel(log logs.Log, endpoint string) *HTTPModel {
	return &HTTPModel{
		endpoint: endpoint,
		log:      log,
	}
}

type inferRequestImage struct {
	Name string `json:"name"`
	Data string `json:"data"` // base64 of the encoded image file
}

type inferRequest struct {
	Images []inferRequestImage `json:"images"`
}

type inferResponseGrid struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	WorldPoints []float32 `json:"worldPoints"` // row-major x,y,z triples
	Depth       []float32 `json:"depth"`       // row-major scalars
}

type inferResponse struct {
	Grids []inferResponseGrid `json:"grids"`
}

func (m *HTTPModel) Infer(ctx context.Context, images []LoadedImage) (*Prediction, error) {
	req := inferRequest{
		Images: make([]inferRequestImage, 0, len(images)),
	}
	for _, img := range images {
		req.Images = append(req.Images, inferRequestImage{
			Name: filepath.Base(img.Path),
			Data: base64.StdEncoding.EncodeToString(img.Raw),
		})
	}
	m.log.Infof("Running inference on %v images via %v", len(images), m.endpoint)
	resp, err := requests.RequestJSON[inferResponse](ctx, http.MethodPost, m.endpoint, &req, nil)
	if err != nil {
		return nil, fmt.Errorf("Inference request failed: %w", err)
	}
	if len(resp.Grids) != len(images) {
		return nil, fmt.Errorf("Model returned %v grids for %v images", len(resp.Grids), len(images))
	}
	pred := &Prediction{
		Grids: make([]PointGrid, 0, len(resp.Grids)),
	}
	for i, g := range resp.Grids {
		grid := PointGrid{
			Width:  g.Width,
			Height: g.Height,
			XYZ:    g.WorldPoints,
			Depth:  g.Depth,
		}
		if err := grid.Validate(); err != nil {
			return nil, fmt.Errorf("Grid %v (%v): %w", i, filepath.Base(images[i].Path), err)
		}
		pred.Grids = append(pred.Grids, grid)
	}
	return pred, nil
}
