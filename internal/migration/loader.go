package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/aqasim81/schema-shift/internal/parser"
)

// filenamePattern matches migration files of the form
//
//	{version}_{name}.sql  (e.g., 0001_create_users.sql)
//
// where version is a zero-padded ordinal of at least four digits.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by LoadFromDir
	`^(\d{4,})_([A-Za-z0-9_-]+)\.sql$`,
)

// LoadFromDir scans a directory for migration files and returns them as
// unsorted Migration values. Files that do not match the expected naming
// pattern are skipped. A directory that does not exist yields an empty
// result, not an error, so a fresh checkout can run before any migration
// has been written.
func LoadFromDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var migrations []Migration

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		m, err := readMigration(dir, entry.Name(), matches[1], matches[2])
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, m)
	}

	return migrations, nil
}

// readMigration reads a migration file, splits it into forward and rollback
// segments, and builds a Migration.
func readMigration(dir, filename, version, name string) (Migration, error) {
	path := filepath.Join(dir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	upSQL, downSQL := parser.SplitSegments(string(data))

	return Migration{
		Version:  version,
		Name:     name,
		UpSQL:    upSQL,
		DownSQL:  downSQL,
		Checksum: ComputeChecksum(upSQL),
		FilePath: path,
	}, nil
}
