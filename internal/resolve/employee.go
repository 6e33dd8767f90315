package resolve

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/beneple/bx-migrate/internal/extradoc"
	"github.com/beneple/bx-migrate/internal/legacy"
	"github.com/beneple/bx-migrate/internal/store"
	"github.com/beneple/bx-migrate/pkg/schema"
)

// EmployeeResolver resolves canonical employees by their linked user, and
// owns the merge-enrichment of employee extra documents across the
// employment, bank info and dependent passes.
type EmployeeResolver struct {
	data     map[string]legacy.Fields
	users    *UserResolver
	registry *schema.Registry
	store    store.Store
}

func NewEmployeeResolver(data map[string]legacy.Fields, users *UserResolver, registry *schema.Registry, st store.Store) *EmployeeResolver {
	return &EmployeeResolver{data: data, users: users, registry: registry, store: st}
}

// GetByLegacyID resolves a legacy employee pk to its canonical employee via
// the linked user. The employee must already exist; creation happens only
// through GetOrCreate during the employee pass.
func (r *EmployeeResolver) GetByLegacyID(ctx context.Context, pk string) (*store.Entity, error) {
	user, err := r.GetUserByLegacyID(ctx, pk)
	if err != nil {
		return nil, err
	}
	emp, err := r.findByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, errors.Errorf("employee for legacy id %s not created yet", pk)
	}
	return emp, nil
}

// GetUserByLegacyID resolves the user linked to a legacy employee pk.
func (r *EmployeeResolver) GetUserByLegacyID(ctx context.Context, pk string) (*store.Entity, error) {
	f, ok := r.data[pk]
	if !ok {
		return nil, &MissingReferenceError{Model: legacy.ModelEmployee, PK: pk}
	}
	rec, err := legacy.DecodeEmployee(pk, f)
	if err != nil {
		return nil, err
	}
	return r.users.GetByLegacyID(ctx, rec.User.String())
}

func (r *EmployeeResolver) findByUser(ctx context.Context, user *store.Entity) (*store.Entity, error) {
	emp, err := r.store.FindByKey(ctx, store.KindEmployee, map[string]any{"user_id": user.ID.String()})
	if err != nil {
		return nil, errors.Wrapf(err, "find employee of %s", user.StringField("email"))
	}
	return emp, nil
}

// GetOrCreate looks an employee up by its linked user and creates it on a
// miss: the full nested extra document is assembled, pruned and validated,
// the employee persisted, and the EmployeeUser plus optional OrgEmployee
// links recorded. On a hit the stored entity is returned unchanged.
func (r *EmployeeResolver) GetOrCreate(ctx context.Context, user, org *store.Entity, rec legacy.Employee) (*store.Entity, error) {
	existing, err := r.findByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	declared, err := r.registry.ProjectableFields(schema.Employee, "legacy", "employee")
	if err != nil {
		return nil, err
	}

	birthDate, _ := extradoc.DateISO(rec.BirthDate)
	extra := extradoc.Prune(extradoc.Doc{
		"birth_date": birthDate,
		"emergency_contact": extradoc.Doc{
			"name":         rec.ECName,
			"phone_number": rec.ECPhone,
		},
		"gender": extradoc.Gender(rec.Gender),
		"contact": extradoc.Doc{"home": extradoc.Doc{
			"address":      rec.HomeAddress,
			"email":        extradoc.EmailOrEmpty(rec.PersonalEmail),
			"phone_number": rec.Phone,
		}},
		"documents": extradoc.Doc{
			"labor_card": extradoc.Doc{
				"number":      rec.LabourCard,
				"expiry_date": dateOrEmpty(rec.LabourExpiryDate),
			},
			"passport": extradoc.Doc{
				"number":      rec.PassportNumber,
				"expiry_date": dateOrEmpty(rec.PassportExpiryDate),
			},
			"emirates_id": extradoc.Doc{
				"number":      rec.EmiratesID,
				"expiry_date": dateOrEmpty(rec.EmiratesIDExpiryDate),
			},
		},
		"languages":   extradoc.Languages(rec.Languages),
		"nationality": rec.Nationality,
		"legacy": extradoc.Doc{
			"employee": extradoc.ProjectFields(rec.Raw, declared),
		},
	})
	// The enums default rather than prune away, so they go in after.
	extra["marital_status"] = extradoc.MaritalStatus(rec.MaritalStatus)
	extra["religion"] = extradoc.Religion(rec.Religion)

	if err := r.registry.Validate(extra, schema.Employee); err != nil {
		return nil, errors.Wrapf(err, "employee of %s", user.StringField("email"))
	}

	created, err := r.store.Create(ctx, store.KindEmployee, map[string]any{
		"user_id":     user.ID.String(),
		"displayname": displayName(user),
		"active":      rec.Active,
		"extra":       extra,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create employee of %s", user.StringField("email"))
	}

	_, err = r.store.Create(ctx, store.KindEmployeeUser, map[string]any{
		"employee_id": created.ID.String(),
		"user_id":     user.ID.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "link employee to user")
	}
	if org != nil {
		_, err = r.store.Create(ctx, store.KindOrgEmployee, map[string]any{
			"employee_id": created.ID.String(),
			"org_id":      org.ID.String(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "link employee to organization")
		}
	}
	return created, nil
}

// ComplementFromEmployment enriches an employee from its employment record:
// monthly salary, title, visa and work contract documents, and the
// employment legacy bucket.
func (r *EmployeeResolver) ComplementFromEmployment(ctx context.Context, emp *store.Entity, rec legacy.Employment) error {
	emp.Fields["monthlysalary"] = extradoc.Salary(rec.Salary)

	extra := emp.Extra()
	title := rec.Position
	if title == "" {
		title = "---"
	}
	extra["title"] = title

	docs, ok := extra["documents"].(map[string]any)
	if !ok {
		docs = extradoc.Doc{}
		extra["documents"] = docs
	}
	docs["visa"] = extradoc.Doc{
		"number":      rec.VisaNumber,
		"expiry_date": dateOrEmpty(rec.VisaExpiryDate),
		"image_url":   rec.VisaDocument,
	}
	docs["work_contract"] = extradoc.Doc{
		"start_date": dateOrEmpty(rec.ContractStartDate),
		"end_date":   dateOrEmpty(rec.ContractEndDate),
	}

	declared, err := r.registry.ProjectableFields(schema.Employee, "legacy", "employment")
	if err != nil {
		return err
	}
	legacyBucket(extra)["employment"] = extradoc.ProjectFields(rec.Raw, declared)

	return r.cleanValidateSave(ctx, emp)
}

// ComplementFromBankInfo enriches an employee with its bank account: fields
// projected through the schema's bank_account sub-schema plus the legacy
// bucket.
func (r *EmployeeResolver) ComplementFromBankInfo(ctx context.Context, emp *store.Entity, rec legacy.BankInfo) error {
	extra := emp.Extra()

	declaredBank, err := r.registry.ProjectableFields(schema.Employee, "bank_account")
	if err != nil {
		return err
	}
	extra["bank_account"] = extradoc.ProjectFields(rec.Raw, declaredBank)

	declaredLegacy, err := r.registry.ProjectableFields(schema.Employee, "legacy", "bank_account")
	if err != nil {
		return err
	}
	legacyBucket(extra)["bank_account"] = extradoc.ProjectFields(rec.Raw, declaredLegacy)

	return r.cleanValidateSave(ctx, emp)
}

// ComplementFromDependent appends a dependant unless one with the same name
// already exists; existing entries are never replaced. The legacy bucket is
// overwritten on every call regardless of the dedup outcome.
func (r *EmployeeResolver) ComplementFromDependent(ctx context.Context, emp *store.Entity, rec legacy.Dependent) error {
	extra := emp.Extra()

	deps, _ := extra["dependants"].([]any)
	if !dependantExists(deps, rec.Name) {
		deps = append(deps, extradoc.Doc{
			"birth_date":  dateOrEmpty(rec.BirthDate),
			"name":        rec.Name,
			"nationality": rec.Nationality,
			"relation":    extradoc.Relation(rec.Relation),
			"emirates_id": extradoc.Doc{
				"number":      rec.EmiratesID,
				"expiry_date": dateOrEmpty(rec.EmiratesIDExpiryDate),
			},
			"passport": extradoc.Doc{
				"number":      rec.PassportNumber,
				"expiry_date": dateOrEmpty(rec.PassportExpiryDate),
			},
			"visa": extradoc.Doc{
				"number":      rec.VisaNumber,
				"expiry_date": dateOrEmpty(rec.VisaExpiryDate),
				"image_url":   rec.VisaDocument,
			},
		})
	}
	extra["dependants"] = deps

	declared, err := r.registry.ProjectableFields(schema.Employee, "legacy", "dependants")
	if err != nil {
		return err
	}
	legacyBucket(extra)["dependants"] = extradoc.ProjectFields(rec.Raw, declared)

	return r.cleanValidateSave(ctx, emp)
}

func (r *EmployeeResolver) cleanValidateSave(ctx context.Context, emp *store.Entity) error {
	extra := extradoc.Prune(emp.Extra())
	if err := r.registry.Validate(extra, schema.Employee); err != nil {
		return err
	}
	emp.SetExtra(extra)
	if err := r.store.Save(ctx, emp, store.EmptyMetadata()); err != nil {
		return errors.Wrap(err, "save employee")
	}
	return nil
}

// Superiority records a line-manager edge between two employees.
func (r *EmployeeResolver) Superiority(ctx context.Context, subordinate, superior *store.Entity) error {
	_, err := r.store.Create(ctx, store.KindSuperiority, map[string]any{
		"subordinate_id": subordinate.ID.String(),
		"superior_id":    superior.ID.String(),
	})
	if err != nil {
		return errors.Wrap(err, "record superiority")
	}
	return nil
}

func dependantExists(deps []any, name string) bool {
	for _, d := range deps {
		if m, ok := d.(map[string]any); ok && m["name"] == name {
			return true
		}
	}
	return false
}

func legacyBucket(extra map[string]any) map[string]any {
	if b, ok := extra["legacy"].(map[string]any); ok {
		return b
	}
	b := make(map[string]any)
	extra["legacy"] = b
	return b
}

func displayName(user *store.Entity) string {
	legacyDoc, _ := user.Extra()["legacy"].(map[string]any)
	first, _ := legacyDoc["first_name"].(string)
	last, _ := legacyDoc["last_name"].(string)
	return strings.TrimSpace(first + " " + last)
}

// dateOrEmpty renders the date part of a loose legacy date string, or ""
// when absent or unparsable; pruning drops the empty field.
func dateOrEmpty(s string) string {
	d, _ := extradoc.DateISO(s)
	return d
}
