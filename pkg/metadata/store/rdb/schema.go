package rdb

import "fmt"

// Table names. Column names are lowercase so the same statements run on
// both engines without quoting.
const (
	tableStats     = "stats"
	tableCounters  = "counters"
	tableInstances = "instances"
	tableFiles     = "files"
	tableAncestry  = "ancestry"
)

func schemaStatements(t DatabaseType) []string {
	integer, blob, serial := "INTEGER", "BLOB", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if t == DatabaseTypePostgres {
		integer, blob, serial = "BIGINT", "BYTEA", "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS stats (version %s NOT NULL)`, integer),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS counters (
			file_counter %[1]s NOT NULL,
			change_counter %[1]s NOT NULL
		)`, integer),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS instances (
			idx %s,
			name TEXT NOT NULL,
			instance_id TEXT NOT NULL,
			UNIQUE (name, instance_id)
		)`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS files (
			instance %[1]s NOT NULL,
			id %[1]s NOT NULL,
			change_instance %[1]s NOT NULL,
			change_id %[1]s NOT NULL,
			path TEXT NOT NULL,
			filename TEXT NOT NULL,
			modified %[1]s NOT NULL,
			permissions %[2]s NOT NULL,
			PRIMARY KEY (instance, id)
		)`, integer, blob),
		`CREATE UNIQUE INDEX IF NOT EXISTS files_path_index ON files (path, filename)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ancestry (
			instance %[1]s NOT NULL,
			id %[1]s NOT NULL,
			parent_instance %[1]s NOT NULL,
			parent_id %[1]s NOT NULL,
			PRIMARY KEY (instance, id)
		)`, integer),
	}
}

// filenameOrder is the ORDER BY clause giving byte order on each engine.
func filenameOrder(t DatabaseType) string {
	if t == DatabaseTypePostgres {
		return `filename COLLATE "C"`
	}
	return "filename"
}
