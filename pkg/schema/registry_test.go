package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("")
	require.NoError(t, err)
	return r
}

func TestProjectableFields(t *testing.T) {
	r := newTestRegistry(t)

	employment, err := r.ProjectableFields(Employee, "legacy", "employment")
	require.NoError(t, err)
	require.Contains(t, employment, "salary")
	require.Contains(t, employment, "position")
	require.NotContains(t, employment, "employee")

	bank, err := r.ProjectableFields(Employee, "bank_account")
	require.NoError(t, err)
	require.Contains(t, bank, "iban")
	require.Contains(t, bank, "bank_name")

	orgLegacy, err := r.ProjectableFields(Organization, "legacy")
	require.NoError(t, err)
	require.Contains(t, orgLegacy, "address")
}

func TestProjectableFieldsUnknownPath(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.ProjectableFields(Employee, "legacy", "no_such_model")
	require.Error(t, err)

	_, err = r.ProjectableFields("nope", "legacy")
	require.Error(t, err)
}

func TestValidateAcceptsAssembledDocument(t *testing.T) {
	r := newTestRegistry(t)

	doc := map[string]any{
		"birth_date":     "1980-05-02",
		"gender":         "male",
		"marital_status": "married",
		"religion":       "Muslim",
		"languages":      []any{"English"},
		"contact": map[string]any{
			"home": map[string]any{"email": "a@b.com"},
		},
		"legacy": map[string]any{
			"employee": map[string]any{"phone": "+971500000000"},
		},
	}
	require.NoError(t, r.Validate(doc, Employee))
}

func TestValidateReportsViolatingPaths(t *testing.T) {
	r := newTestRegistry(t)

	doc := map[string]any{
		"marital_status": "divorced",
	}
	err := r.Validate(doc, Employee)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, Employee, verr.Schema)
	require.NotEmpty(t, verr.Paths)
}

func TestEmployeeRequiredClauseDropped(t *testing.T) {
	r := newTestRegistry(t)
	// an empty document has neither birth_date nor nationality and must
	// still validate once the required clause is gone
	require.NoError(t, r.Validate(map[string]any{}, Employee))
}

func TestValidateOrganization(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Validate(map[string]any{
		"working_hours_start": "09:00:00",
		"legacy":              map[string]any{"address": "Dubai"},
	}, Organization))

	err := r.Validate(map[string]any{"unexpected": "x"}, Organization)
	require.Error(t, err)
}
