// Package resolve implements lookup-or-create resolution of canonical
// entities from legacy records. Each resolver is constructed once per run
// and keyed by its entity's natural identity, so resolving the same legacy
// record twice can never duplicate an entity.
package resolve

import (
	"context"
	"fmt"

	"github.com/beneple/bx-migrate/internal/store"
)

// MissingReferenceError reports a legacy identifier that is absent from the
// loaded dataset. Dangling references are fatal: silently skipping them
// would drop edges from the migrated graph.
type MissingReferenceError struct {
	Model string
	PK    string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s %s referenced but not present in export", e.Model, e.PK)
}

// EntityResolver is the capability every resolver shares: resolve a legacy
// primary key to its canonical entity, creating it on first reference.
type EntityResolver interface {
	GetByLegacyID(ctx context.Context, pk string) (*store.Entity, error)
}
