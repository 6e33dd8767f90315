package migrate

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/beneple/bx-migrate/internal/legacy"
	"github.com/beneple/bx-migrate/internal/store"
	"github.com/beneple/bx-migrate/pkg/schema"
)

const export = `[
	{"model": "auth.user", "pk": 1, "fields": {
		"username": "jdoe", "email": "jdoe@example.com", "password": "pbkdf2$x",
		"first_name": "John", "last_name": "Doe", "date_joined": "2012-01-01",
		"groups": [3]
	}},
	{"model": "auth.user", "pk": 2, "fields": {
		"username": "boss", "email": "boss@example.com", "password": "pbkdf2$y",
		"first_name": "Big", "last_name": "Boss", "date_joined": "2011-06-01",
		"groups": [6]
	}},
	{"model": "aythan.organization", "pk": 10, "fields": {
		"title": "Acme", "url": "acme.example.com", "user": 1,
		"working_start_hour": "09:00", "working_hours_end": "18:00",
		"address": "Dubai", "unmodeled_field": "dropped"
	}},
	{"model": "employee.employee", "pk": 100, "fields": {
		"user": 1, "organization": 10, "status": true,
		"birth_date": "1980-05-02", "ec_name": "Jane", "ec_phone": "+971500000001",
		"gender": "Male", "home_address": "Dubai Marina",
		"personal_email": "john@home.com", "phone": "+971500000000",
		"labour_card": "L-1", "labour_expiry_date": "2017-01-01",
		"passport_number": "P-1", "passport_expiry_date": "2018-01-01",
		"emirates_id": "784-1980-1234567-1", "emirates_id_expiry_date": "2019-01-01",
		"languages": "English, Arabic", "nationality": "GB",
		"marital_status": "Married", "religion": "Islam"
	}},
	{"model": "employee.employee", "pk": 101, "fields": {
		"user": 2, "organization": 10, "status": true,
		"birth_date": "1970-01-01", "ec_name": "", "ec_phone": "",
		"gender": "Female", "home_address": "", "personal_email": "",
		"phone": "", "labour_card": "", "labour_expiry_date": "",
		"passport_number": "", "passport_expiry_date": "",
		"emirates_id": "", "emirates_id_expiry_date": "",
		"languages": "", "nationality": "AE",
		"marital_status": "", "religion": ""
	}},
	{"model": "employee.employment", "pk": 200, "fields": {
		"employee": 100, "line_manager": 101, "salary": "1,234.50",
		"position": "Engineer", "visa_number": "V-1",
		"visa_expiry_date": "2018-03-04", "visa_document": "",
		"contract_start_date": "2015-01-01", "contract_end_date": "2017-01-01"
	}},
	{"model": "employee.bankinfo", "pk": 300, "fields": {
		"employee": 100, "bank_name": "ENBD",
		"iban": "AE070331234567890123456", "account_number": "1012003000"
	}},
	{"model": "employee.dependent", "pk": 400, "fields": {
		"employee": 100, "name": "Alice", "relation": "None",
		"birth_date": "2010-07-07", "nationality": "GB",
		"emirates_id": "", "emirates_id_expiry_date": "",
		"passport_number": "", "passport_expiry_date": "",
		"visa_number": "", "visa_expiry_date": "", "visa_document": ""
	}}
]`

func newMigration(t *testing.T, mem *store.Memory) (*Migration, *schema.Registry) {
	t.Helper()
	registry, err := schema.NewRegistry("")
	require.NoError(t, err)

	data, err := legacy.Load(strings.NewReader(export))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return New(data, registry, mem, logger, false), registry
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m, registry := newMigration(t, mem)

	require.NoError(t, m.Run(ctx))

	// the org-linked user ends up admin even though HR derived "edit"
	user, err := mem.FindByKey(ctx, store.KindUser, map[string]any{"email": "jdoe@example.com"})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "admin", user.Fields["clearance"])

	boss, err := mem.FindByKey(ctx, store.KindUser, map[string]any{"email": "boss@example.com"})
	require.NoError(t, err)
	require.Equal(t, "", boss.Fields["clearance"])

	require.Equal(t, 2, mem.Count(store.KindUser))
	require.Equal(t, 1, mem.Count(store.KindOrganization))
	require.Equal(t, 2, mem.Count(store.KindEmployee))
	require.Equal(t, 2, mem.Count(store.KindEmployeeUser))
	require.Equal(t, 2, mem.Count(store.KindOrgEmployee))
	require.Equal(t, 1, mem.Count(store.KindSuperiority))

	emp, err := mem.FindByKey(ctx, store.KindEmployee, map[string]any{"user_id": user.ID.String()})
	require.NoError(t, err)
	require.NotNil(t, emp)
	require.Equal(t, "John Doe", emp.Fields["displayname"])

	salary := emp.Fields["monthlysalary"].(decimal.Decimal)
	require.True(t, salary.Equal(decimal.RequireFromString("1234.50")))

	extra := emp.Extra()
	require.Equal(t, "Engineer", extra["title"])
	require.Equal(t, "ENBD", extra["bank_account"].(map[string]any)["bank_name"])

	deps := extra["dependants"].([]any)
	require.Len(t, deps, 1)
	require.Equal(t, "Alice", deps[0].(map[string]any)["name"])
	require.Equal(t, "Other", deps[0].(map[string]any)["relation"])

	// the fully enriched document still conforms to the employee schema
	require.NoError(t, registry.Validate(extra, schema.Employee))

	// superiority edge points from the engineer to the boss's employee
	bossEmp, err := mem.FindByKey(ctx, store.KindEmployee, map[string]any{"user_id": boss.ID.String()})
	require.NoError(t, err)
	edges := mem.All(store.KindSuperiority)
	require.Equal(t, emp.ID.String(), edges[0].Fields["subordinate_id"])
	require.Equal(t, bossEmp.ID.String(), edges[0].Fields["superior_id"])
}

func TestRunCreationIdempotentOnRerun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m, _ := newMigration(t, mem)

	require.NoError(t, m.Run(ctx))
	require.NoError(t, m.Run(ctx))

	require.Equal(t, 2, mem.Count(store.KindUser))
	require.Equal(t, 1, mem.Count(store.KindOrganization))
	require.Equal(t, 2, mem.Count(store.KindEmployee))
	require.Equal(t, 2, mem.Count(store.KindEmployeeUser))
	require.Equal(t, 2, mem.Count(store.KindOrgEmployee))

	// dependants are deduplicated by name on the re-run as well
	user, err := mem.FindByKey(ctx, store.KindUser, map[string]any{"email": "jdoe@example.com"})
	require.NoError(t, err)
	emp, err := mem.FindByKey(ctx, store.KindEmployee, map[string]any{"user_id": user.ID.String()})
	require.NoError(t, err)
	require.Len(t, emp.Extra()["dependants"], 1)
}

func TestRunDebugStopsAfterFirstRecord(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	registry, err := schema.NewRegistry("")
	require.NoError(t, err)

	// two users but only one employee: with the debug toggle on, exactly
	// one user is imported by the first pass, the rest appear only on
	// demand
	small := `[
		{"model": "auth.user", "pk": 1, "fields": {
			"username": "jdoe", "email": "jdoe@example.com", "password": "x",
			"first_name": "John", "last_name": "Doe",
			"date_joined": "2012-01-01", "groups": [6]
		}},
		{"model": "employee.employee", "pk": 100, "fields": {
			"user": 1, "status": true, "birth_date": "1980-05-02",
			"ec_name": "", "ec_phone": "", "gender": "", "home_address": "",
			"personal_email": "", "phone": "", "labour_card": "",
			"labour_expiry_date": "", "passport_number": "",
			"passport_expiry_date": "", "emirates_id": "",
			"emirates_id_expiry_date": "", "languages": "",
			"nationality": "GB", "marital_status": "", "religion": ""
		}}
	]`
	data, err := legacy.Load(strings.NewReader(small))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	require.NoError(t, New(data, registry, mem, logger, true).Run(ctx))

	require.Equal(t, 1, mem.Count(store.KindUser))
	require.Equal(t, 1, mem.Count(store.KindEmployee))
	require.Equal(t, 0, mem.Count(store.KindOrganization))
}

func TestRunMissingReferenceFatal(t *testing.T) {
	ctx := context.Background()

	registry, err := schema.NewRegistry("")
	require.NoError(t, err)

	broken := `[
		{"model": "employee.employment", "pk": 200, "fields": {"employee": 999, "salary": "1"}}
	]`
	data, err := legacy.Load(strings.NewReader(broken))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	err = New(data, registry, store.NewMemory(), logger, false).Run(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "999")
}
