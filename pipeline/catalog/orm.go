package catalog

import "github.com/mentralabs/scenecloud/pkg/dbh"

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Run is one completed pipeline execution
type Run struct {
	BaseModel
	RunID      string      `json:"runID"`      // UUID assigned at the start of the run
	Source     string      `json:"source"`     // Bucket path or local image directory
	ImageCount int         `json:"imageCount"` // Images fed to the model
	PointCount int         `json:"pointCount"` // Points surviving the depth filter
	OutputFile string      `json:"outputFile"` // Absolute path of the exported cloud
	DurationMS int64       `json:"durationMS"` // Wall time of the whole pipeline
	CreatedAt  dbh.IntTime `json:"createdAt"`
}
