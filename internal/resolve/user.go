package resolve

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/beneple/bx-migrate/internal/legacy"
	"github.com/beneple/bx-migrate/internal/store"
)

// emailDomain backfills an identity email for legacy users that never had
// one; the username is unique in the old system.
const emailDomain = "beneple.com"

// permissionGroups maps legacy permission-group IDs to their names.
var permissionGroups = map[int]string{
	1: "Admin",
	2: "SuperHR",
	3: "HR",
	4: "CLevel",
	5: "LineManager",
	6: "Employee",
}

// UserResolver resolves canonical users by email.
type UserResolver struct {
	data  map[string]legacy.Fields
	store store.Store
}

func NewUserResolver(data map[string]legacy.Fields, st store.Store) *UserResolver {
	return &UserResolver{data: data, store: st}
}

// GetByLegacyID resolves the legacy user pk through the dataset, creating
// the canonical user on first reference.
func (r *UserResolver) GetByLegacyID(ctx context.Context, pk string) (*store.Entity, error) {
	f, ok := r.data[pk]
	if !ok {
		return nil, &MissingReferenceError{Model: legacy.ModelUser, PK: pk}
	}
	rec, err := legacy.DecodeUser(pk, f)
	if err != nil {
		return nil, err
	}
	return r.GetOrCreate(ctx, rec)
}

// GetOrCreate looks a user up by identity email and creates it on a miss.
// On a hit the stored entity is returned unchanged.
func (r *UserResolver) GetOrCreate(ctx context.Context, rec legacy.User) (*store.Entity, error) {
	email := rec.Email
	if email == "" {
		email = fmt.Sprintf("%s@%s", rec.Username, emailDomain)
	}

	existing, err := r.store.FindByKey(ctx, store.KindUser, map[string]any{"email": email})
	if err != nil {
		return nil, errors.Wrapf(err, "find user %s", email)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := r.store.Create(ctx, store.KindUser, map[string]any{
		"email":     email,
		"password":  rec.Password,
		"clearance": clearanceFromGroups(rec.Groups),
		"extra": map[string]any{
			"legacy": map[string]any{
				"date_joined": rec.DateJoined,
				"first_name":  rec.FirstName,
				"last_name":   rec.LastName,
				"username":    rec.Username,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create user %s", email)
	}
	return created, nil
}

// GrantAdmin sets the user's clearance to admin outright. The organization
// pass invokes this for org-linked users; it runs after the user pass, so
// the admin override always wins over the group-derived clearance.
func (r *UserResolver) GrantAdmin(ctx context.Context, user *store.Entity) error {
	user.Fields["clearance"] = "admin"
	if err := r.store.Save(ctx, user, store.EmptyMetadata()); err != nil {
		return errors.Wrapf(err, "grant admin to %s", user.StringField("email"))
	}
	return nil
}

// clearanceFromGroups derives a coarse access level from the legacy
// permission groups. HR roles outrank Admin here: Admin in the old system
// was an auditing role, not an editing one.
func clearanceFromGroups(groups []int) string {
	names := make(map[string]bool, len(groups))
	for _, g := range groups {
		names[permissionGroups[g]] = true
	}
	switch {
	case names["HR"] || names["SuperHR"]:
		return "edit"
	case names["Admin"]:
		return "audit"
	default:
		return ""
	}
}
