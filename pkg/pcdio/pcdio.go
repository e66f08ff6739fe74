// Package pcdio writes and reads colored point clouds as binary PCD.
// Layout is the common colored-cloud convention: fields x y z rgb, four bytes
// each, with the color packed into a single little-endian word as 0x00RRGGBB.
package pcdio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/seqsense/pcgol/pc"
)

const pointStride = 16 // x,y,z float32 + packed rgb uint32

var ErrEmptyCloud = errors.New("refusing to write an empty point cloud")

// Write serializes an aligned coordinate/color pair as binary PCD
func Write(w io.Writer, pts []r3.Vector, cols []color.NRGBA) error {
	if len(pts) == 0 {
		return ErrEmptyCloud
	}
	if len(pts) != len(cols) {
		return fmt.Errorf("point/color length mismatch: %v vs %v", len(pts), len(cols))
	}
	cloud := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Fields:    []string{"x", "y", "z", "rgb"},
			Size:      []int{4, 4, 4, 4},
			Type:      []string{"F", "F", "F", "U"},
			Count:     []int{1, 1, 1, 1},
			Width:     len(pts),
			Height:    1,
			Viewpoint: []float32{0, 0, 0, 1, 0, 0, 0},
		},
		Points: len(pts),
		Data:   make([]byte, len(pts)*pointStride),
	}
	for i, p := range pts {
		off := i * pointStride
		binary.LittleEndian.PutUint32(cloud.Data[off:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(cloud.Data[off+4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(cloud.Data[off+8:], math.Float32bits(float32(p.Z)))
		binary.LittleEndian.PutUint32(cloud.Data[off+12:], packColor(cols[i]))
	}
	return pc.Marshal(cloud, w)
}

// WriteFile writes the cloud to a file, removing the file again if
// serialization fails partway.
func WriteFile(path string, pts []r3.Vector, cols []color.NRGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, pts, cols); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Read decodes a PCD written by Write. Used to verify an export by loading
// it back.
func Read(r io.Reader) ([]r3.Vector, []color.NRGBA, error) {
	cloud, err := pc.Unmarshal(r)
	if err != nil {
		return nil, nil, err
	}
	stride := 0
	xOff, rgbOff := -1, -1
	for i, f := range cloud.Fields {
		if f == "x" {
			xOff = stride
		} else if f == "rgb" {
			rgbOff = stride
		}
		stride += cloud.Size[i] * cloud.Count[i]
	}
	if xOff < 0 {
		return nil, nil, fmt.Errorf("PCD has no x/y/z fields (fields: %v)", cloud.Fields)
	}
	pts := make([]r3.Vector, cloud.Points)
	cols := make([]color.NRGBA, cloud.Points)
	for i := 0; i < cloud.Points; i++ {
		off := i * stride
		pts[i] = r3.Vector{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(cloud.Data[off+xOff:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(cloud.Data[off+xOff+4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(cloud.Data[off+xOff+8:]))),
		}
		if rgbOff >= 0 {
			cols[i] = unpackColor(binary.LittleEndian.Uint32(cloud.Data[off+rgbOff:]))
		}
	}
	return pts, cols, nil
}

// ReadFile loads a PCD file written by WriteFile
func ReadFile(path string) ([]r3.Vector, []color.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Read(f)
}

func packColor(c color.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func unpackColor(v uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
}
