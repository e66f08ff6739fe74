package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"github.com/mentralabs/scenecloud/pkg/dbh"
	"github.com/stretchr/testify/require"
)

func TestCatalogUncreatableDirectory(t *testing.T) {
	// A regular file where a parent directory should go makes MkdirAll fail,
	// and the error must name the directory, not the DB file
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err := Open(logs.NewTestingLog(t), filepath.Join(blocker, "catalog.sqlite"))
	require.Error(t, err)
	require.Contains(t, err.Error(), blocker)
}

func TestCatalog(t *testing.T) {
	cat, err := Open(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "catalog.sqlite"))
	require.NoError(t, err)

	first := &Run{
		RunID:      uuid.NewString(),
		Source:     "class/bag",
		ImageCount: 4,
		PointCount: 120000,
		OutputFile: "/data/class/bag/point_cloud.pcd",
		DurationMS: 9500,
		CreatedAt:  dbh.MakeIntTime(time.Now().Add(-time.Hour)),
	}
	require.NoError(t, cat.Record(first))

	second := &Run{
		RunID:      uuid.NewString(),
		Source:     "class/bag",
		ImageCount: 6,
		PointCount: 250000,
		OutputFile: "/data/class/bag/point_cloud.pcd",
		DurationMS: 14000,
		CreatedAt:  dbh.MakeIntTime(time.Now()),
	}
	require.NoError(t, cat.Record(second))

	recent, err := cat.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, second.RunID, recent[0].RunID)
	require.Equal(t, first.RunID, recent[1].RunID)

	runs, err := cat.FindBySource("class/bag")
	require.NoError(t, err)
	require.Len(t, runs, 2)

	runs, err = cat.FindBySource("other/scene")
	require.NoError(t, err)
	require.Len(t, runs, 0)
}
