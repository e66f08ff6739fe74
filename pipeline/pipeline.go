// Package pipeline wires the stages together: stage images from storage or
// disk, run the reconstruction model, filter and color the resulting points,
// export the cloud, and record the run in the catalog.
//
// Everything is deliberately sequential. Each stage consumes the previous
// stage's output, and the first failure aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"github.com/mentralabs/scenecloud/pipeline/catalog"
	"github.com/mentralabs/scenecloud/pkg/dbh"
	"github.com/mentralabs/scenecloud/pkg/fetch"
	"github.com/mentralabs/scenecloud/pkg/pcdio"
	"github.com/mentralabs/scenecloud/pkg/points"
	"github.com/mentralabs/scenecloud/pkg/recon"
	"github.com/mentralabs/scenecloud/pkg/storage"
)

// OutputFilename is the fixed name of the exported cloud inside the output directory
const OutputFilename = "point_cloud.pcd"

var ErrNoImages = errors.New("no images to process from any source")

// Job is one reconstruction request
type Job struct {
	BucketPath string // "category/item" inside the configured bucket. Empty to skip the bucket
	ImageDir   string // Local directory of images. Empty to skip
	OutputDir  string // Where to write the cloud. Empty means derive from the source
	Preview    bool   // Also render a top-down PNG preview next to the cloud
}

// Result summarizes a finished run
type Result struct {
	RunID      string
	OutputFile string
	ImageCount int
	PointCount int
	Bounds     points.Bounds
	Duration   time.Duration
}

type Pipeline struct {
	Log     logs.Log
	Config  *Config
	Model   recon.Model
	Catalog *catalog.Catalog

	store storage.Storage // nil until a job needs the bucket
}

func NewPipeline(log logs.Log, cfg *Config) (*Pipeline, error) {
	if cfg.Model.Endpoint == "" {
		return nil, fmt.Errorf("No model endpoint configured")
	}
	p := &Pipeline{
		Log:    log,
		Config: cfg,
		Model:  recon.NewHTTPModel(log, cfg.Model.Endpoint),
	}
	if cfg.CatalogDB != "none" {
		cat, err := catalog.Open(log, cfg.CatalogDB)
		if err != nil {
			return nil, err
		}
		p.Catalog = cat
	}
	return p, nil
}

// Run executes the whole pipeline for one job
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()

	imagePaths := []string{}
	outputDir := job.OutputDir

	if job.BucketPath != "" {
		store, err := p.storage()
		if err != nil {
			return nil, err
		}
		sceneDir := filepath.Join(p.Config.DataRoot, filepath.FromSlash(job.BucketPath))
		imagesDir := filepath.Join(sceneDir, "images")
		p.Log.Infof("Downloading images from bucket path '%v' into %v", job.BucketPath, imagesDir)
		bucketPaths, err := fetch.Fetch(ctx, p.Log, store, job.BucketPath, imagesDir)
		if err != nil {
			return nil, err
		}
		imagePaths = append(imagePaths, bucketPaths...)
		if outputDir == "" {
			outputDir = sceneDir
		}
	}

	if job.ImageDir != "" {
		p.Log.Infof("Scanning local images in %v", job.ImageDir)
		localPaths, err := fetch.LocalImages(job.ImageDir)
		if err != nil {
			return nil, err
		}
		if len(localPaths) == 0 {
			p.Log.Warnf("No images found in %v", job.ImageDir)
		}
		imagePaths = append(imagePaths, localPaths...)
		if outputDir == "" {
			outputDir = filepath.Join(p.Config.DataRoot, filepath.Base(job.ImageDir))
		}
	}

	if len(imagePaths) == 0 {
		return nil, ErrNoImages
	}
	p.Log.Infof("Total images to process: %v", len(imagePaths))

	images, err := recon.LoadImages(imagePaths)
	if err != nil {
		return nil, err
	}

	pred, err := p.Model.Infer(ctx, images)
	if err != nil {
		return nil, err
	}

	pts, samples, err := points.ExtractBatch(pred, images, p.Config.Depth.Near, p.Config.Depth.Far)
	if err != nil {
		return nil, err
	}
	cols := points.NormalizeColors(samples)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	outputFile := filepath.Join(outputDir, OutputFilename)
	if err := pcdio.WriteFile(outputFile, pts, cols); err != nil {
		return nil, err
	}

	// Load the file back, to catch a bad export before anyone downstream does
	verifyPts, _, err := pcdio.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("Verification of %v failed: %w", outputFile, err)
	}
	if len(verifyPts) != len(pts) {
		return nil, fmt.Errorf("Verification of %v failed: wrote %v points, read back %v", outputFile, len(pts), len(verifyPts))
	}

	bounds := points.CloudBounds(pts)
	p.Log.Infof("Exported %v points to %v", len(pts), outputFile)
	p.Log.Infof("Point range %v", bounds)

	if job.Preview {
		previewFile := filepath.Join(outputDir, "preview.png")
		if err := RenderPreview(previewFile, pts, cols, 1024); err != nil {
			return nil, err
		}
		p.Log.Infof("Preview written to %v", previewFile)
	}

	result := &Result{
		RunID:      runID,
		OutputFile: outputFile,
		ImageCount: len(images),
		PointCount: len(pts),
		Bounds:     bounds,
		Duration:   time.Since(start),
	}

	if p.Catalog != nil {
		run := &catalog.Run{
			RunID:      runID,
			Source:     jobSource(job),
			ImageCount: result.ImageCount,
			PointCount: result.PointCount,
			OutputFile: outputFile,
			DurationMS: result.Duration.Milliseconds(),
			CreatedAt:  dbh.MakeIntTime(time.Now()),
		}
		if err := p.Catalog.Record(run); err != nil {
			return nil, fmt.Errorf("Failed to record run in catalog: %w", err)
		}
	}

	return result, nil
}

func (p *Pipeline) storage() (storage.Storage, error) {
	if p.store == nil {
		store, err := p.Config.OpenStorage(p.Log)
		if err != nil {
			return nil, err
		}
		p.store = store
	}
	return p.store, nil
}

func jobSource(job Job) string {
	parts := []string{}
	if job.BucketPath != "" {
		parts = append(parts, job.BucketPath)
	}
	if job.ImageDir != "" {
		parts = append(parts, job.ImageDir)
	}
	return strings.Join(parts, "+")
}
