package executor

import "errors"

// ErrNoRollbackScript indicates a rollback was requested for a migration
// whose tracking row has no stored rollback script. Raised before any
// database statement executes.
var ErrNoRollbackScript = errors.New("no rollback script recorded")
