package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const versionWidth = 4

// scaffoldTemplate is the content written for a newly created migration.
const scaffoldTemplate = `-- Migration: %s

-- Write forward statements here.

-- ROLLBACK

-- Write rollback statements here.
`

var slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`) //nolint:gochecknoglobals // compiled once

// NextVersion returns the version following the highest one present,
// zero-padded to at least four digits. An empty set yields "0001".
func NextVersion(migrations []Migration) string {
	highest := 0
	width := versionWidth

	for _, m := range migrations {
		n, err := strconv.Atoi(m.Version)
		if err != nil {
			continue
		}

		if n > highest {
			highest = n
		}

		if len(m.Version) > width {
			width = len(m.Version)
		}
	}

	return fmt.Sprintf("%0*d", width, highest+1)
}

// Slugify normalizes a migration name for use in a filename: lowercased,
// whitespace collapsed to underscores, anything outside [a-z0-9_-] dropped.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "_")

	return slugInvalid.ReplaceAllString(s, "")
}

// Scaffold writes a new migration file for the given version and name into
// dir, creating the directory if needed, and returns the file path. It
// refuses to overwrite an existing file.
func Scaffold(dir, version, name string) (string, error) {
	slug := Slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q reduces to an empty slug", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, version+"_"+slug+".sql")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating migration file %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // write error surfaces below

	if _, err := fmt.Fprintf(f, scaffoldTemplate, slug); err != nil {
		return "", fmt.Errorf("writing migration file %s: %w", path, err)
	}

	return path, nil
}
