package catalog

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/logs"
	"github.com/mentralabs/scenecloud/pkg/dbh"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE run(
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			source TEXT NOT NULL,
			image_count INT NOT NULL,
			point_count INT NOT NULL,
			output_file TEXT NOT NULL,
			duration_ms INT NOT NULL,
			created_at INT NOT NULL
		);

		CREATE INDEX idx_run_source ON run(source);
		CREATE INDEX idx_run_created_at ON run(created_at);
	`))

	return migs
}
