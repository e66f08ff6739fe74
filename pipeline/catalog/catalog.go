// Package catalog keeps a small sqlite record of every pipeline run, so you
// can see which scenes have already been reconstructed, and where their
// output files went.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pkg/dbh"
	"gorm.io/gorm"
)

type Catalog struct {
	Log logs.Log
	DB  *gorm.DB
}

func Open(log logs.Log, dbFilename string) (*Catalog, error) {
	dir := filepath.Dir(dbFilename)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, fmt.Errorf("Failed to create catalog directory %v: %w", dir, err)
	}
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbFilename), Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open catalog database %v: %w", dbFilename, err)
	}
	return &Catalog{
		Log: log,
		DB:  db,
	}, nil
}

// Record saves one completed run
func (c *Catalog) Record(run *Run) error {
	return c.DB.Create(run).Error
}

// Recent returns the most recent runs, newest first
func (c *Catalog) Recent(limit int) ([]Run, error) {
	runs := []Run{}
	if err := c.DB.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// FindBySource returns runs for the given bucket path or local directory, newest first
func (c *Catalog) FindBySource(source string) ([]Run, error) {
	runs := []Run{}
	if err := c.DB.Where("source = ?", source).Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
