package executor

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/schema-shift/internal/parser"
)

// Mode is the execution strategy chosen for one migration.
type Mode int

const (
	// ModeTransactional wraps the forward script and the tracking insert in
	// a single transaction. This is the default.
	ModeTransactional Mode = iota
	// ModeNonTransactional executes statements one at a time in autocommit,
	// for statement classes PostgreSQL refuses inside a transaction block.
	ModeNonTransactional
)

// ModeDecision is the tagged outcome of mode detection, computed exactly
// once per migration before any statement runs.
type ModeDecision struct {
	Mode   Mode
	Reason string // set only for ModeNonTransactional
}

func (d ModeDecision) String() string {
	if d.Mode == ModeNonTransactional {
		return "non-transactional (" + d.Reason + ")"
	}

	return "transactional"
}

// DetectMode inspects a forward script and decides the execution strategy.
// CREATE INDEX CONCURRENTLY and DROP INDEX CONCURRENTLY cannot run inside a
// transaction block, so any script containing one is executed statement by
// statement in autocommit. If the script does not parse, detection falls
// back to a substring check so an unparseable script still avoids being
// wrapped in a transaction it cannot survive; the execution error surfaces
// from the database either way.
func DetectMode(sql string) ModeDecision {
	result, err := parser.Parse(sql)
	if err != nil {
		if strings.Contains(strings.ToUpper(sql), "CONCURRENTLY") {
			return ModeDecision{
				Mode:   ModeNonTransactional,
				Reason: "script mentions CONCURRENTLY and could not be parsed",
			}
		}

		return ModeDecision{Mode: ModeTransactional}
	}

	for _, stmt := range result.Stmts {
		if reason := concurrentReason(stmt); reason != "" {
			return ModeDecision{Mode: ModeNonTransactional, Reason: reason}
		}
	}

	return ModeDecision{Mode: ModeTransactional}
}

// concurrentReason returns a human-readable reason if the statement belongs
// to the class that cannot run inside a transaction block.
func concurrentReason(stmt *pg_query.RawStmt) string {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_IndexStmt:
		if node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return "CREATE INDEX CONCURRENTLY cannot run inside a transaction block"
		}
	case *pg_query.Node_DropStmt:
		if node.DropStmt != nil && node.DropStmt.Concurrent {
			return "DROP INDEX CONCURRENTLY cannot run inside a transaction block"
		}
	}

	return ""
}
