package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pipeline"
)

func main() {
	parser := argparse.NewParser("scenecloud", "Reconstruct a colored point cloud from scene photographs")
	bucketPath := parser.String("b", "bucket-path", &argparse.Options{Help: "Path in the bucket (eg 'class/bag')", Default: ""})
	imageDir := parser.String("i", "image-dir", &argparse.Options{Help: "Local directory containing images", Default: ""})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file path", Default: "scenecloud.json"})
	output := parser.String("o", "output", &argparse.Options{Help: "Output directory (default is derived from the source)", Default: ""})
	preview := parser.Flag("", "preview", &argparse.Options{Help: "Also render a top-down PNG preview of the cloud", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}
	if *bucketPath == "" && *imageDir == "" {
		fmt.Print(parser.Usage(errors.New("at least one of --bucket-path or --image-dir must be provided")))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	cfg, err := pipeline.LoadConfig(*configFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	job := pipeline.Job{
		ImageDir:  *imageDir,
		OutputDir: *output,
		Preview:   *preview,
	}
	if *bucketPath != "" {
		parsed, err := pipeline.ParseBucketPath(cfg.BucketName(), *bucketPath)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		job.BucketPath = parsed
	}

	p, err := pipeline.NewPipeline(logger, cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	result, err := p.Run(context.Background(), job)
	if err != nil {
		logger.Errorf("Pipeline failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Pipeline complete: %v points from %v images in %.1fs", result.PointCount, result.ImageCount, result.Duration.Seconds())
	logger.Infof("Point cloud location: %v", result.OutputFile)
}
