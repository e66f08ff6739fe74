package pipeline

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pkg/fetch"
	"github.com/mentralabs/scenecloud/pkg/remote"
)

// RunRemote is the companion flow to Pipeline.Run for machines that can't run
// inference locally: stage the images from the bucket, push them to the GPU
// box over SSH, run the reconstruction script there with its output streamed
// into stdout/stderr, then pull the result files back down.
//
// Returns the local directory the results were downloaded into.
func RunRemote(ctx context.Context, log logs.Log, cfg *Config, bucketPath string, stdout, stderr io.Writer) (string, error) {
	if cfg.Remote.Host == "" || cfg.Remote.ProjectPath == "" {
		return "", fmt.Errorf("Remote host and project path must be configured (config 'remote')")
	}
	store, err := cfg.OpenStorage(log)
	if err != nil {
		return "", err
	}

	// Stage images locally first, so a bad bucket path fails before we touch the remote machine
	sceneName := strings.ReplaceAll(bucketPath, "/", "_")
	stagingDir := filepath.Join(cfg.DataRoot, "staging", sceneName)
	imagePaths, err := fetch.Fetch(ctx, log, store, bucketPath, stagingDir)
	if err != nil {
		return "", err
	}

	client, err := remote.Dial(log, cfg.Remote.Config)
	if err != nil {
		return "", err
	}
	defer client.Close()

	remoteSceneDir := path.Join(cfg.Remote.ProjectPath, "data", sceneName)
	remoteImagesDir := path.Join(remoteSceneDir, "images")
	log.Infof("Creating remote directory %v", remoteImagesDir)
	if err := client.MkdirAll(remoteImagesDir); err != nil {
		return "", fmt.Errorf("Failed to create remote directory %v: %w", remoteImagesDir, err)
	}

	log.Infof("Uploading %v images to %v", len(imagePaths), remoteImagesDir)
	for _, localPath := range imagePaths {
		remotePath := path.Join(remoteImagesDir, filepath.Base(localPath))
		if err := client.Upload(localPath, remotePath); err != nil {
			return "", err
		}
	}

	script := path.Join(cfg.Remote.ProjectPath, "demo_colmap.py")
	cmd := fmt.Sprintf("python3 %v --scene_dir %v", script, remoteSceneDir)
	log.Infof("Running inference on remote machine: %v", cmd)
	if err := client.Run(cmd, stdout, stderr); err != nil {
		return "", err
	}

	resultsDir := filepath.Join(cfg.DataRoot, "results", sceneName)
	remoteResultsDir := path.Join(remoteSceneDir, "sparse")
	log.Infof("Downloading results from %v", remoteResultsDir)
	if err := client.DownloadDir(remoteResultsDir, resultsDir); err != nil {
		return "", err
	}
	log.Infof("Results downloaded to %v", resultsDir)
	return resultsDir, nil
}
