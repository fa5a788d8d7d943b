package migration

import (
	"sort"
	"strings"
)

// CompareVersions orders zero-padded version strings numerically. Equal-width
// strings compare lexicographically; a shorter string is left-padded with
// zeros first, so "10000" sorts after "9999".
func CompareVersions(a, b string) int {
	if len(a) < len(b) {
		a = strings.Repeat("0", len(b)-len(a)) + a
	} else if len(b) < len(a) {
		b = strings.Repeat("0", len(a)-len(b)) + b
	}

	return strings.Compare(a, b)
}

// Sort returns a new slice of migrations sorted ascending by version.
// The sort is stable to preserve insertion order for equal versions.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareVersions(sorted[i].Version, sorted[j].Version) < 0
	})

	return sorted
}
