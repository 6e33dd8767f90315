package resolve

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/beneple/bx-migrate/internal/extradoc"
	"github.com/beneple/bx-migrate/internal/legacy"
	"github.com/beneple/bx-migrate/internal/store"
	"github.com/beneple/bx-migrate/pkg/schema"
)

// OrganizationResolver resolves canonical organizations by (name, domain).
type OrganizationResolver struct {
	data     map[string]legacy.Fields
	registry *schema.Registry
	store    store.Store
}

func NewOrganizationResolver(data map[string]legacy.Fields, registry *schema.Registry, st store.Store) *OrganizationResolver {
	return &OrganizationResolver{data: data, registry: registry, store: st}
}

func (r *OrganizationResolver) GetByLegacyID(ctx context.Context, pk string) (*store.Entity, error) {
	f, ok := r.data[pk]
	if !ok {
		return nil, &MissingReferenceError{Model: legacy.ModelOrganization, PK: pk}
	}
	rec, err := legacy.DecodeOrganization(pk, f)
	if err != nil {
		return nil, err
	}
	return r.GetOrCreate(ctx, rec)
}

// GetOrCreate looks an organization up by (name, domain) and creates it on
// a miss: legacy fields are projected through the schema whitelist, working
// hours parsed to ISO time-of-day when present, and the assembled extra
// document validated before the write.
func (r *OrganizationResolver) GetOrCreate(ctx context.Context, rec legacy.Organization) (*store.Entity, error) {
	key := map[string]any{"name": rec.Title, "domain": rec.URL}
	existing, err := r.store.FindByKey(ctx, store.KindOrganization, key)
	if err != nil {
		return nil, errors.Wrapf(err, "find organization %s", rec.Title)
	}
	if existing != nil {
		return existing, nil
	}

	declared, err := r.registry.ProjectableFields(schema.Organization, "legacy")
	if err != nil {
		return nil, err
	}
	extra := extradoc.Doc{
		"legacy": extradoc.ProjectFields(rec.Raw, declared),
	}
	if rec.WorkingStartHour != "" {
		if t, ok := extradoc.TimeISO(rec.WorkingStartHour); ok {
			extra["working_hours_start"] = t
		}
	}
	if rec.WorkingHoursEnd != "" {
		if t, ok := extradoc.TimeISO(rec.WorkingHoursEnd); ok {
			extra["working_hours_end"] = t
		}
	}

	if err := r.registry.Validate(extra, schema.Organization); err != nil {
		return nil, errors.Wrapf(err, "organization %s", rec.Title)
	}

	created, err := r.store.Create(ctx, store.KindOrganization, map[string]any{
		"name":   rec.Title,
		"domain": rec.URL,
		"extra":  extra,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create organization %s", rec.Title)
	}
	return created, nil
}
