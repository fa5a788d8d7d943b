package orchestrator

import (
	"context"

	"github.com/aqasim81/schema-shift/internal/migration"
	"github.com/aqasim81/schema-shift/internal/tracker"
)

// Status summarizes the migration state: counts plus the full applied and
// pending lists, both ascending by version.
type Status struct {
	AvailableCount int
	AppliedCount   int
	PendingCount   int
	Applied        []tracker.AppliedMigration
	Pending        []migration.Migration
}

// Status reports the current migration state from a fresh read of the
// directory and the tracking table.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	available, err := o.Available(ctx)
	if err != nil {
		return Status{}, err
	}

	applied, err := o.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	appliedSet := make(map[string]struct{}, len(applied))
	for _, rec := range applied {
		appliedSet[rec.Version] = struct{}{}
	}

	var pending []migration.Migration

	for _, m := range available {
		if _, ok := appliedSet[m.Version]; !ok {
			pending = append(pending, m)
		}
	}

	return Status{
		AvailableCount: len(available),
		AppliedCount:   len(applied),
		PendingCount:   len(pending),
		Applied:        applied,
		Pending:        pending,
	}, nil
}
