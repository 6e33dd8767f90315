// Package migrate drives the fixed-order passes over the legacy export.
// Each pass fully consumes one legacy table before the next starts, because
// later passes assume the entities of earlier passes already exist.
package migrate

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/beneple/bx-migrate/internal/legacy"
	"github.com/beneple/bx-migrate/internal/resolve"
	"github.com/beneple/bx-migrate/internal/store"
	"github.com/beneple/bx-migrate/pkg/schema"
)

// Migration wires one resolver per canonical entity type and runs the
// passes. Resolvers are constructed once and shared across passes; the
// migration itself holds no entity state.
type Migration struct {
	data  legacy.Dataset
	store store.Store
	log   *logrus.Logger

	// debug stops every pass after its first record, for dry-run
	// inspection of a single entity per table.
	debug bool

	users     *resolve.UserResolver
	orgs      *resolve.OrganizationResolver
	employees *resolve.EmployeeResolver
}

func New(data legacy.Dataset, registry *schema.Registry, st store.Store, log *logrus.Logger, debug bool) *Migration {
	users := resolve.NewUserResolver(data.Table(legacy.ModelUser), st)
	return &Migration{
		data:  data,
		store: st,
		log:   log,
		debug: debug,
		users: users,
		orgs: resolve.NewOrganizationResolver(
			data.Table(legacy.ModelOrganization), registry, st),
		employees: resolve.NewEmployeeResolver(
			data.Table(legacy.ModelEmployee), users, registry, st),
	}
}

// Run executes all passes in order. The first error aborts the run; already
// created entities stay behind, and a re-run resumes correctly because
// creation is lookup-first.
func (m *Migration) Run(ctx context.Context) error {
	passes := []struct {
		model string
		fn    func(context.Context, string, legacy.Fields) error
	}{
		{legacy.ModelUser, m.importUser},
		{legacy.ModelOrganization, m.importOrganization},
		{legacy.ModelEmployee, m.importEmployee},
		{legacy.ModelEmployment, m.importEmployment},
		{legacy.ModelBankInfo, m.importBankInfo},
		{legacy.ModelDependent, m.importDependent},
	}

	for _, pass := range passes {
		for pk, fields := range m.data.Table(pass.model) {
			if err := pass.fn(ctx, pk, fields); err != nil {
				return err
			}
			if m.debug {
				break
			}
		}
		m.log.Infof("import %s is complete", pass.model)
	}
	return nil
}

func (m *Migration) importUser(ctx context.Context, pk string, f legacy.Fields) error {
	rec, err := legacy.DecodeUser(pk, f)
	if err != nil {
		return err
	}
	_, err = m.users.GetOrCreate(ctx, rec)
	return err
}

func (m *Migration) importOrganization(ctx context.Context, pk string, f legacy.Fields) error {
	rec, err := legacy.DecodeOrganization(pk, f)
	if err != nil {
		return err
	}

	// A user linked to the legacy org is the equivalent of admin rights in
	// the new system.
	if !rec.User.IsZero() {
		user, err := m.users.GetByLegacyID(ctx, rec.User.String())
		if err != nil {
			return err
		}
		if err := m.users.GrantAdmin(ctx, user); err != nil {
			return err
		}
	}

	_, err = m.orgs.GetOrCreate(ctx, rec)
	return err
}

func (m *Migration) importEmployee(ctx context.Context, pk string, f legacy.Fields) error {
	rec, err := legacy.DecodeEmployee(pk, f)
	if err != nil {
		return err
	}

	user, err := m.users.GetByLegacyID(ctx, rec.User.String())
	if err != nil {
		return err
	}

	var org *store.Entity
	if !rec.Organization.IsZero() {
		org, err = m.orgs.GetByLegacyID(ctx, rec.Organization.String())
		if err != nil {
			return err
		}
	}

	_, err = m.employees.GetOrCreate(ctx, user, org, rec)
	return err
}

func (m *Migration) importEmployment(ctx context.Context, pk string, f legacy.Fields) error {
	rec, err := legacy.DecodeEmployment(pk, f)
	if err != nil {
		return err
	}

	emp, err := m.employees.GetByLegacyID(ctx, rec.Employee.String())
	if err != nil {
		return err
	}

	if !rec.LineManager.IsZero() {
		if err := m.recordLineManager(ctx, emp, rec.LineManager.String()); err != nil {
			return err
		}
	}

	return m.employees.ComplementFromEmployment(ctx, emp, rec)
}

// recordLineManager resolves the manager as an employee too (creating it if
// the employee pass never saw one) and records the superiority edge.
func (m *Migration) recordLineManager(ctx context.Context, emp *store.Entity, managerPK string) error {
	managerFields, ok := m.data.Table(legacy.ModelEmployee)[managerPK]
	if !ok {
		return &resolve.MissingReferenceError{Model: legacy.ModelEmployee, PK: managerPK}
	}
	managerRec, err := legacy.DecodeEmployee(managerPK, managerFields)
	if err != nil {
		return err
	}

	managerUser, err := m.users.GetByLegacyID(ctx, managerRec.User.String())
	if err != nil {
		return err
	}
	manager, err := m.employees.GetOrCreate(ctx, managerUser, nil, managerRec)
	if err != nil {
		return err
	}
	return m.employees.Superiority(ctx, emp, manager)
}

func (m *Migration) importBankInfo(ctx context.Context, pk string, f legacy.Fields) error {
	rec, err := legacy.DecodeBankInfo(pk, f)
	if err != nil {
		return err
	}
	emp, err := m.employees.GetByLegacyID(ctx, rec.Employee.String())
	if err != nil {
		return err
	}
	return m.employees.ComplementFromBankInfo(ctx, emp, rec)
}

func (m *Migration) importDependent(ctx context.Context, pk string, f legacy.Fields) error {
	rec, err := legacy.DecodeDependent(pk, f)
	if err != nil {
		return err
	}
	emp, err := m.employees.GetByLegacyID(ctx, rec.Employee.String())
	if err != nil {
		return err
	}
	return m.employees.ComplementFromDependent(ctx, emp, rec)
}
