package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/schema-shift/internal/database"
	"github.com/aqasim81/schema-shift/internal/migration"
	"github.com/aqasim81/schema-shift/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// ProgressEvent is emitted for each migration the orchestrator processes.
type ProgressEvent struct {
	Version  string
	Name     string
	Status   string
	Duration time.Duration
	Error    error
}

// Store abstracts the tracking table for testability.
type Store interface {
	EnsureTable(ctx context.Context) error
	GetApplied(ctx context.Context) ([]tracker.AppliedMigration, error)
	GetRecord(ctx context.Context, version string) (tracker.AppliedMigration, error)
}

// Applier abstracts the executor: it applies or rolls back exactly one
// migration, bookkeeping included.
type Applier interface {
	Apply(ctx context.Context, m *migration.Migration) error
	Rollback(ctx context.Context, rec tracker.AppliedMigration) error
}

// lockReleaser is returned by lockFunc and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires the session advisory lock and returns a releaser.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// Orchestrator computes the pending diff and drives sequential application
// and rollback of migrations. Migrations are re-read from the directory on
// every operation, never cached, so validation and the pending set always
// reflect the current on-disk state. Application is strictly sequential:
// later migrations may depend on schema states created by earlier ones.
type Orchestrator struct {
	pool          *pgxpool.Pool
	store         Store
	applier       Applier
	migrationsDir string
	dryRun        bool
	onProgress    func(ProgressEvent)
	acquireLock   lockFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDryRun makes ApplyAll report pending migrations without executing them.
func WithDryRun(b bool) Option {
	return func(o *Orchestrator) { o.dryRun = b }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// New creates an Orchestrator. The migrations directory is an explicit
// argument: there is no process-wide default location.
func New(pool *pgxpool.Pool, store Store, applier Applier, migrationsDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pool:          pool,
		store:         store,
		applier:       applier,
		migrationsDir: migrationsDir,
	}

	for _, opt := range opts {
		opt(o)
	}

	// Default set after options so tests can inject their own lock.
	if o.acquireLock == nil {
		o.acquireLock = func(ctx context.Context) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, o.pool)
		}
	}

	return o
}

// Available returns all discovered migrations, ascending by version.
func (o *Orchestrator) Available(_ context.Context) ([]migration.Migration, error) {
	ms, err := migration.LoadFromDir(o.migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("discovering migrations: %w", err)
	}

	return migration.Sort(ms), nil
}

// Applied returns all applied migration records, ascending by version.
func (o *Orchestrator) Applied(ctx context.Context) ([]tracker.AppliedMigration, error) {
	if err := o.store.EnsureTable(ctx); err != nil {
		return nil, err
	}

	return o.store.GetApplied(ctx)
}

// Pending returns available migrations not yet applied, ascending by version.
func (o *Orchestrator) Pending(ctx context.Context) ([]migration.Migration, error) {
	available, err := o.Available(ctx)
	if err != nil {
		return nil, err
	}

	applied, err := o.Applied(ctx)
	if err != nil {
		return nil, err
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

	return pending, nil
}

// ApplyAll applies every pending migration one at a time in ascending
// version order, holding the session advisory lock from computing the
// pending set through the last apply. It stops and propagates on the first
// failure, leaving already-applied versions intact; re-running after a fix
// skips them because they no longer appear in the pending diff.
func (o *Orchestrator) ApplyAll(ctx context.Context) error {
	lock, err := o.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	pending, err := o.Pending(ctx)
	if err != nil {
		return err
	}

	for i := range pending {
		if err := o.applyOne(ctx, &pending[i]); err != nil {
			return err
		}
	}

	return nil
}

// applyOne executes a single pending migration and fires progress events.
func (o *Orchestrator) applyOne(ctx context.Context, m *migration.Migration) error {
	if o.dryRun {
		o.fireProgress(ProgressEvent{Version: m.Version, Name: m.Name, Status: StatusSkipped})

		return nil
	}

	o.fireProgress(ProgressEvent{Version: m.Version, Name: m.Name, Status: StatusStarting})

	start := time.Now()
	err := o.applier.Apply(ctx, m)
	duration := time.Since(start)

	if err != nil {
		o.fireProgress(ProgressEvent{
			Version:  m.Version,
			Name:     m.Name,
			Status:   StatusFailed,
			Duration: duration,
			Error:    err,
		})

		return err
	}

	o.fireProgress(ProgressEvent{
		Version:  m.Version,
		Name:     m.Name,
		Status:   StatusCompleted,
		Duration: duration,
	})

	return nil
}

// RollbackOne rolls back a single applied version using its stored
// rollback script.
func (o *Orchestrator) RollbackOne(ctx context.Context, version string) error {
	lock, err := o.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	if err := o.store.EnsureTable(ctx); err != nil {
		return err
	}

	rec, err := o.store.GetRecord(ctx, version)
	if err != nil {
		return err
	}

	return o.rollbackRecord(ctx, rec)
}

// RollbackToVersion rolls back every applied version strictly greater than
// target, newest first, so the schema walks backward one version at a time.
// It stops on the first failure; versions not yet rolled back stay applied.
// The target itself remains applied.
func (o *Orchestrator) RollbackToVersion(ctx context.Context, target string) error {
	lock, err := o.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	applied, err := o.Applied(ctx)
	if err != nil {
		return err
	}

	var above []tracker.AppliedMigration

	for _, rec := range applied {
		if migration.CompareVersions(rec.Version, target) > 0 {
			above = append(above, rec)
		}
	}

	sort.SliceStable(above, func(i, j int) bool {
		return migration.CompareVersions(above[i].Version, above[j].Version) > 0
	})

	for _, rec := range above {
		if err := o.rollbackRecord(ctx, rec); err != nil {
			return err
		}
	}

	return nil
}

// rollbackRecord reverses one applied migration and fires progress events.
func (o *Orchestrator) rollbackRecord(ctx context.Context, rec tracker.AppliedMigration) error {
	o.fireProgress(ProgressEvent{Version: rec.Version, Name: rec.Name, Status: StatusStarting})

	start := time.Now()
	err := o.applier.Rollback(ctx, rec)
	duration := time.Since(start)

	if err != nil {
		o.fireProgress(ProgressEvent{
			Version:  rec.Version,
			Name:     rec.Name,
			Status:   StatusFailed,
			Duration: duration,
			Error:    err,
		})

		return err
	}

	o.fireProgress(ProgressEvent{
		Version:  rec.Version,
		Name:     rec.Name,
		Status:   StatusCompleted,
		Duration: duration,
	})

	return nil
}

// CreateNew scaffolds the next migration file: version max(existing)+1,
// zero-padded, with a forward section and a rollback marker. Returns the
// path of the created file.
func (o *Orchestrator) CreateNew(ctx context.Context, name string) (string, error) {
	available, err := o.Available(ctx)
	if err != nil {
		return "", err
	}

	version := migration.NextVersion(available)

	return migration.Scaffold(o.migrationsDir, version, name)
}

func (o *Orchestrator) fireProgress(event ProgressEvent) {
	if o.onProgress != nil {
		o.onProgress(event)
	}
}
