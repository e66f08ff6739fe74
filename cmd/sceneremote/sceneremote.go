package main

import (
	"context"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pipeline"
)

func main() {
	parser := argparse.NewParser("sceneremote", "Run scene reconstruction on a remote GPU machine over SSH")
	bucketPath := parser.String("b", "bucket-path", &argparse.Options{Help: "Path in the bucket (eg 'class/bag')", Required: true})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file path", Default: "scenecloud.json"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
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
	parsed, err := pipeline.ParseBucketPath(cfg.BucketName(), *bucketPath)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	resultsDir, err := pipeline.RunRemote(context.Background(), logger, cfg, parsed, os.Stdout, os.Stderr)
	if err != nil {
		logger.Errorf("Remote run failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Remote run complete. Results in %v", resultsDir)
}
