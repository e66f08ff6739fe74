package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pkg/points"
	"github.com/mentralabs/scenecloud/pkg/remote"
	"github.com/mentralabs/scenecloud/pkg/storage"
)

// Config is the pipeline's JSON config file
type Config struct {
	Storage   StorageConfig `json:"storage"`
	Model     ModelConfig   `json:"model"`
	DataRoot  string        `json:"dataRoot"`  // Local working directory. Default "data"
	CatalogDB string        `json:"catalogDB"` // Path of the run catalog sqlite file. Default <dataRoot>/catalog.sqlite. "none" disables the catalog
	Depth     DepthConfig   `json:"depth"`
	Remote    RemoteConfig  `json:"remote"`
}

// One of the storage options must be configured to use --bucket-path
// (i.e. 'supabase', 'gcs' or 'filesystem')
type StorageConfig struct {
	Supabase   *StorageConfigSupabase `json:"supabase"`
	GCS        *StorageConfigGCS      `json:"gcs"`
	Filesystem *StorageConfigFS       `json:"filesystem"`
}

type StorageConfigSupabase struct {
	URL        string `json:"url"`        // eg https://myproject.supabase.co
	Bucket     string `json:"bucket"`     // Name of the storage bucket
	ServiceKey string `json:"serviceKey"` // Service role key. Empty means read the SUPABASE_SERVICE_ROLE environment variable
}

type StorageConfigGCS struct {
	Bucket string `json:"bucket"` // Name of the GCS bucket. Credentials come from GOOGLE_APPLICATION_CREDENTIALS
}

type StorageConfigFS struct {
	Root string `json:"root"` // Path to the root of the filesystem store
}

type ModelConfig struct {
	Endpoint string `json:"endpoint"` // Reconstruction service URL, eg http://gpu-box:9090/v1/reconstruct
}

// DepthConfig overrides the depth validity band. Zero values mean the defaults.
type DepthConfig struct {
	Near float32 `json:"near"`
	Far  float32 `json:"far"`
}

// RemoteConfig is for sceneremote: where the GPU machine is, and where the
// model repo lives on it.
type RemoteConfig struct {
	remote.Config
	ProjectPath string `json:"projectPath"` // Model repo path on the remote machine, eg /home/gpu/vggt
}

func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{}
	cfgB, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfgB, cfg); err != nil {
		return nil, fmt.Errorf("Error parsing config file %v: %w", filename, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataRoot == "" {
		c.DataRoot = "data"
	}
	if c.CatalogDB == "" {
		c.CatalogDB = c.DataRoot + "/catalog.sqlite"
	}
	if c.Depth.Near == 0 {
		c.Depth.Near = points.DefaultNearLimit
	}
	if c.Depth.Far == 0 {
		c.Depth.Far = points.DefaultFarLimit
	}
	if c.Storage.Supabase != nil && c.Storage.Supabase.ServiceKey == "" {
		c.Storage.Supabase.ServiceKey = os.Getenv("SUPABASE_SERVICE_ROLE")
	}
}

// BucketName returns the configured bucket name, or "" when no bucket
// storage is configured
func (c *Config) BucketName() string {
	if c.Storage.Supabase != nil {
		return c.Storage.Supabase.Bucket
	}
	if c.Storage.GCS != nil {
		return c.Storage.GCS.Bucket
	}
	return ""
}

// OpenStorage builds the configured blob store backend
func (c *Config) OpenStorage(log logs.Log) (storage.Storage, error) {
	if c.Storage.Supabase != nil {
		sb := c.Storage.Supabase
		if sb.ServiceKey == "" {
			return nil, fmt.Errorf("Supabase storage needs a service key (config 'storage.supabase.serviceKey' or env SUPABASE_SERVICE_ROLE)")
		}
		return storage.NewStorageSupabase(log, sb.URL, sb.Bucket, sb.ServiceKey), nil
	}
	if c.Storage.GCS != nil {
		return storage.NewStorageGCS(log, c.Storage.GCS.Bucket)
	}
	if c.Storage.Filesystem != nil {
		return storage.NewStorageFS(log, c.Storage.Filesystem.Root)
	}
	return nil, fmt.Errorf("No storage backend configured (need one of 'supabase', 'gcs' or 'filesystem')")
}

// ParseBucketPath validates a user-supplied bucket path of the form
// "category/item", also accepting "<bucket>/category/item" and returning
// just the "category/item" part. Anything else is rejected before the
// pipeline starts.
func ParseBucketPath(bucketName, path string) (string, error) {
	pattern := `^([^/]+/[^/]+)$`
	if bucketName != "" {
		pattern = `^(?:` + regexp.QuoteMeta(bucketName) + `/)?([^/]+/[^/]+)$`
	}
	m := regexp.MustCompile(pattern).FindStringSubmatch(path)
	if m == nil {
		return "", fmt.Errorf("Invalid bucket path %q. Expected format: [%v/]category/item", path, bucketName)
	}
	return m[1], nil
}
