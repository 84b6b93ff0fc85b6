package service

import (
	"context"
	"testing"

	"storefront-admin/internal/cache"
	"storefront-admin/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRoleRepo struct {
	roles       map[uuid.UUID]*model.Role
	permissions map[string]*model.Permission // by code
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[uuid.UUID]*model.Role{}, permissions: map[string]*model.Permission{}}
}

func (r *fakeRoleRepo) Create(_ context.Context, role *model.Role) error {
	role.ID = uuid.New()
	cp := *role
	r.roles[role.ID] = &cp
	return nil
}

func (r *fakeRoleRepo) Update(_ context.Context, role *model.Role) error {
	cp := *role
	r.roles[role.ID] = &cp
	return nil
}

func (r *fakeRoleRepo) Delete(_ context.Context, role *model.Role) error {
	delete(r.roles, role.ID)
	return nil
}

func (r *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *fakeRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoleRepo) List(_ context.Context) ([]model.Role, error) {
	out := make([]model.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (r *fakeRoleRepo) ListPermissions(_ context.Context) ([]model.Permission, error) {
	out := make([]model.Permission, 0, len(r.permissions))
	for _, p := range r.permissions {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRoleRepo) FindPermissions(_ context.Context, ids []uuid.UUID) ([]model.Permission, error) {
	var out []model.Permission
	for _, p := range r.permissions {
		if lo.Contains(ids, p.ID) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) ReplacePermissions(_ context.Context, role *model.Role, perms []model.Permission) error {
	role.Permissions = perms
	if stored, ok := r.roles[role.ID]; ok {
		stored.Permissions = perms
	}
	return nil
}

func (r *fakeRoleRepo) PermissionCodes(_ context.Context, roleName string) ([]string, error) {
	for _, role := range r.roles {
		if role.Name == roleName {
			return lo.Map(role.Permissions, func(p model.Permission, _ int) string { return p.Code }), nil
		}
	}
	return nil, nil
}

func (r *fakeRoleRepo) UpsertPermission(_ context.Context, perm *model.Permission) error {
	if existing, ok := r.permissions[perm.Code]; ok {
		existing.Name, existing.Group = perm.Name, perm.Group
		perm.ID = existing.ID
		return nil
	}
	perm.ID = uuid.New()
	cp := *perm
	r.permissions[perm.Code] = &cp
	return nil
}

func newTestRoleService(repo *fakeRoleRepo) RoleService {
	return NewRoleService(repo, fakeTx{}, cache.NewPermissionCache(nil, 0), NewAuditService(&fakeAuditRepo{}, testLogger()), testLogger())
}

func TestSeedDefaultRolesAndPermissions(t *testing.T) {
	repo := newFakeRoleRepo()
	svc := newTestRoleService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaultRolesAndPermissions(ctx))
	require.NoError(t, svc.SeedDefaultRolesAndPermissions(ctx))

	assert.Len(t, repo.permissions, len(DefaultPermissions))
	assert.Len(t, repo.roles, 3)

	admin, err := svc.GetPermissionsByRoleName(ctx, RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admin, len(DefaultPermissions))

	staff, err := svc.GetPermissionsByRoleName(ctx, RoleStaff)
	require.NoError(t, err)
	assert.Contains(t, staff, "quotes.create")
	assert.NotContains(t, staff, "tax_rules.write")
}

func TestSystemRolesAreProtected(t *testing.T) {
	repo := newFakeRoleRepo()
	svc := newTestRoleService(repo)
	ctx := context.Background()
	require.NoError(t, svc.SeedDefaultRolesAndPermissions(ctx))

	admin, err := repo.FindByName(ctx, RoleAdmin)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteRole(ctx, admin.ID.String(), ""), ErrInvalidInput)
	_, err = svc.UpdateRole(ctx, admin.ID.String(), UpdateRoleRequest{Name: "root"}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRoleAndAssignPermissions(t *testing.T) {
	repo := newFakeRoleRepo()
	svc := newTestRoleService(repo)
	ctx := context.Background()
	require.NoError(t, svc.SeedDefaultRolesAndPermissions(ctx))

	read := repo.permissions["orders.read"]
	role, err := svc.CreateRole(ctx, CreateRoleRequest{Name: "auditor", Permissions: []string{read.ID.String()}}, "")
	require.NoError(t, err)
	assert.False(t, role.IsSystem)
	require.Len(t, role.Permissions, 1)
	assert.Equal(t, "orders.read", role.Permissions[0].Code)

	_, err = svc.CreateRole(ctx, CreateRoleRequest{Name: "auditor"}, "")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.UpdateRolePermissions(ctx, role.ID, UpdateRolePermissionsRequest{PermissionIDs: []string{uuid.NewString()}}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	audit := repo.permissions["audit.read"]
	updated, err := svc.UpdateRolePermissions(ctx, role.ID, UpdateRolePermissionsRequest{PermissionIDs: []string{audit.ID.String(), read.ID.String()}}, "")
	require.NoError(t, err)
	assert.Len(t, updated.Permissions, 2)

	require.NoError(t, svc.DeleteRole(ctx, role.ID, ""))
	_, err = svc.GetRole(ctx, role.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
