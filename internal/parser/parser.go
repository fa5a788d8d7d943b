package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// rollbackMarker separates the forward segment of a migration file from its
// rollback segment. The comparison is case-insensitive after trimming, so
// "-- rollback" and "--  ROLLBACK  " both count.
const rollbackMarker = "-- rollback"

// SplitSegments splits a migration file's raw text into its forward and
// rollback segments. The first line equal to the rollback marker terminates
// the forward segment; every line after it belongs to the rollback segment.
// Without a marker the entire input is the forward segment. This is a plain
// text convention: neither segment is interpreted as SQL here.
func SplitSegments(raw string) (forward, rollback string) {
	lines := strings.Split(raw, "\n")

	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), rollbackMarker) {
			forward = strings.Join(lines[:i], "\n")
			rollback = strings.Join(lines[i+1:], "\n")

			return strings.TrimSpace(forward), strings.TrimSpace(rollback)
		}
	}

	return strings.TrimSpace(raw), ""
}

// ParseResult holds the parsed AST and original SQL.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// SplitStatements splits sql at statement-terminator boundaries using the
// PostgreSQL scanner, so semicolons inside string literals or dollar-quoted
// bodies do not produce bogus splits. Whitespace-only fragments are dropped.
func SplitStatements(sql string) ([]string, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, nil
	}

	stmts, err := pg_query.SplitWithScanner(sql, true)
	if err != nil {
		return nil, fmt.Errorf("splitting SQL statements: %w", err)
	}

	out := stmts[:0]

	for _, s := range stmts {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}

	return out, nil
}
