package recon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestPointGridValidate(t *testing.T) {
	good := PointGrid{
		Width:  2,
		Height: 2,
		XYZ:    make([]float32, 12),
		Depth:  make([]float32, 4),
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.Depth = make([]float32, 3)
	require.Error(t, bad.Validate())

	bad = good
	bad.XYZ = make([]float32, 11)
	require.Error(t, bad.Validate())

	bad = good
	bad.Width = 0
	require.Error(t, bad.Validate())
}

func TestHTTPModelInfer(t *testing.T) {
	imgBytes := []byte("pretend-jpeg")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		var req inferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Images, 1)
		require.Equal(t, "a.jpg", req.Images[0].Name)
		decoded, err := base64.StdEncoding.DecodeString(req.Images[0].Data)
		require.NoError(t, err)
		require.Equal(t, imgBytes, decoded)

		json.NewEncoder(w).Encode(inferResponse{
			Grids: []inferResponseGrid{
				{
					Width:       2,
					Height:      1,
					WorldPoints: []float32{0, 0, 1, 2, 2, 3},
					Depth:       []float32{1, 2},
				},
			},
		})
	}))
	defer server.Close()

	model := NewHTTPModel(logs.NewTestingLog(t), server.URL)
	pred, err := model.Infer(context.Background(), []LoadedImage{{Path: "some/dir/a.jpg", Raw: imgBytes}})
	require.NoError(t, err)
	require.Len(t, pred.Grids, 1)
	require.Equal(t, 2, pred.Grids[0].Width)
	require.Equal(t, []float32{1, 2}, pred.Grids[0].Depth)
}

func TestHTTPModelGridCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferResponse{})
	}))
	defer server.Close()

	model := NewHTTPModel(logs.NewTestingLog(t), server.URL)
	_, err := model.Infer(context.Background(), []LoadedImage{{Path: "a.jpg"}})
	require.Error(t, err)
}

func TestHTTPModelBadGrid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferResponse{
			Grids: []inferResponseGrid{
				{Width: 2, Height: 2, WorldPoints: []float32{1}, Depth: []float32{1}},
			},
		})
	}))
	defer server.Close()

	model := NewHTTPModel(logs.NewTestingLog(t), server.URL)
	_, err := model.Infer(context.Background(), []LoadedImage{{Path: "a.jpg"}})
	require.Error(t, err)
}

func TestHTTPModelServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	model := NewHTTPModel(logs.NewTestingLog(t), server.URL)
	_, err := model.Infer(context.Background(), []LoadedImage{{Path: "a.jpg"}})
	require.Error(t, err)
}
