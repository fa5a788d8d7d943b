package orchestrator

import (
	"context"
	"fmt"
)

// Integrity issue kinds reported by ValidateIntegrity.
const (
	IssueChecksumMismatch = "checksum_mismatch"
	IssueFileMissing      = "file_missing"
)

// IntegrityIssue is an advisory finding about one applied migration. Issues
// are collected, never raised as errors: drift detection is observability,
// not a gate.
type IntegrityIssue struct {
	Version string
	Name    string
	Kind    string
	Detail  string
}

func (i IntegrityIssue) String() string {
	return fmt.Sprintf("%s %s_%s: %s", i.Kind, i.Version, i.Name, i.Detail)
}

// ValidateIntegrity recomputes the checksum of every applied migration's
// current on-disk definition and reports each divergence. A missing file
// yields file_missing; a digest that no longer matches the one captured at
// apply time yields checksum_mismatch. Only infrastructure failures (an
// unreadable directory, an unreachable database) return an error.
func (o *Orchestrator) ValidateIntegrity(ctx context.Context) ([]IntegrityIssue, error) {
	applied, err := o.Applied(ctx)
	if err != nil {
		return nil, err
	}

	available, err := o.Available(ctx)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]string, len(available)) // version → current checksum
	for _, m := range available {
		onDisk[m.Version] = m.Checksum
	}

	var issues []IntegrityIssue

	for _, rec := range applied {
		current, ok := onDisk[rec.Version]
		if !ok {
			issues = append(issues, IntegrityIssue{
				Version: rec.Version,
				Name:    rec.Name,
				Kind:    IssueFileMissing,
				Detail:  "applied migration has no definition file on disk",
			})

			continue
		}

		if current != rec.Checksum {
			issues = append(issues, IntegrityIssue{
				Version: rec.Version,
				Name:    rec.Name,
				Kind:    IssueChecksumMismatch,
				Detail: fmt.Sprintf("forward script changed after apply: recorded %.12s…, current %.12s…",
					rec.Checksum, current),
			})
		}
	}

	return issues, nil
}
