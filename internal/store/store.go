// Package store defines the document store the migration writes into. The
// migrator treats it as an opaque collaborator: natural-key lookup, create,
// and stamped saves are all it needs.
package store

import (
	"context"

	"github.com/google/uuid"
)

// Kind names an entity collection in the target store.
type Kind string

const (
	KindUser         Kind = "users"
	KindOrganization Kind = "organizations"
	KindEmployee     Kind = "employees"
	KindEmployeeUser Kind = "employee_users"
	KindOrgEmployee  Kind = "org_employees"
	KindSuperiority  Kind = "superiorities"
)

// Entity is a stored document. Fields carry everything including the extra
// document; the natural key of each kind lives inside Fields.
type Entity struct {
	ID     uuid.UUID
	Kind   Kind
	Fields map[string]any
}

// Extra returns the entity's extra document, creating it on first use.
func (e *Entity) Extra() map[string]any {
	if extra, ok := e.Fields["extra"].(map[string]any); ok {
		return extra
	}
	extra := make(map[string]any)
	e.Fields["extra"] = extra
	return extra
}

// SetExtra replaces the entity's extra document.
func (e *Entity) SetExtra(extra map[string]any) {
	e.Fields["extra"] = extra
}

// StringField returns a string-typed field, or "" when absent.
func (e *Entity) StringField(field string) string {
	s, _ := e.Fields[field].(string)
	return s
}

// Metadata is the write stamp attached to every save. The migration only
// ever writes the empty token.
type Metadata struct {
	Stamp map[string]any
}

// EmptyMetadata returns the empty write stamp.
func EmptyMetadata() Metadata {
	return Metadata{}
}

// Store is the target store boundary.
//
// FindByKey returns nil (not an error) when no entity of the kind matches
// every field of key. Create persists a new entity and returns it with its
// assigned ID. Save overwrites an existing entity's fields under the given
// write stamp.
type Store interface {
	FindByKey(ctx context.Context, kind Kind, key map[string]any) (*Entity, error)
	Create(ctx context.Context, kind Kind, fields map[string]any) (*Entity, error)
	Save(ctx context.Context, e *Entity, meta Metadata) error
}
