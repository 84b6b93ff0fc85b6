package service

import (
	"context"
	"fmt"
	"strings"

	"storefront-admin/internal/cache"
	"storefront-admin/internal/model"
	"storefront-admin/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Built-in roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // permission IDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest, userID string) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest, userID string) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string, userID string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest, userID string) (*RoleResponse, error)
	// GetPermissionsByRoleName reads through the Redis cache when one is configured
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	roleRepo  repository.RoleRepository
	txManager repository.TransactionManager
	cache     *cache.PermissionCache
	audit     AuditService
	log       *logrus.Logger
}

func NewRoleService(
	roleRepo repository.RoleRepository,
	txManager repository.TransactionManager,
	permCache *cache.PermissionCache,
	audit AuditService,
	log *logrus.Logger,
) RoleService {
	return &roleService{roleRepo: roleRepo, txManager: txManager, cache: permCache, audit: audit, log: log}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	return lo.Map(roles, func(r model.Role, _ int) RoleResponse { return toRoleResponse(r) }), nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest, userID string) (*RoleResponse, error) {
	name := strings.TrimSpace(req.Name)
	if _, err := s.roleRepo.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: role %q already exists", ErrConflict, name)
	}
	permIDs, err := parseUUIDs(req.Permissions)
	if err != nil {
		return nil, err
	}

	role := model.Role{Name: name, Description: req.Description}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Create(txCtx, &role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		if len(permIDs) == 0 {
			return nil
		}
		perms, err := s.roleRepo.FindPermissions(txCtx, permIDs)
		if err != nil {
			return fmt.Errorf("failed to fetch permissions: %w", err)
		}
		if err := s.roleRepo.ReplacePermissions(txCtx, &role, perms); err != nil {
			return fmt.Errorf("failed to assign permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, userID, model.ActionCreateRole, role.ID.String(), role.Name, req)
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest, userID string) (*RoleResponse, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem && role.Name != req.Name {
		return nil, invalidf("system role %q cannot be renamed", role.Name)
	}

	oldName := role.Name
	role.Name = strings.TrimSpace(req.Name)
	role.Description = req.Description
	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.invalidate(ctx, oldName)
	s.audit.Record(ctx, userID, model.ActionUpdateRole, role.ID.String(), role.Name, req)
	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string, userID string) error {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return invalidf("cannot delete system role %q", role.Name)
	}

	if err := s.roleRepo.Delete(ctx, role); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.invalidate(ctx, role.Name)
	s.audit.Record(ctx, userID, model.ActionDeleteRole, role.ID.String(), role.Name, nil)
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	return lo.Map(perms, func(p model.Permission, _ int) PermissionResponse { return toPermissionResponse(p) }), nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest, userID string) (*RoleResponse, error) {
	role, err := s.findRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	permIDs, err := parseUUIDs(req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	perms, err := s.roleRepo.FindPermissions(ctx, permIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	if len(perms) != len(lo.Uniq(permIDs)) {
		return nil, invalidf("one or more permission ids do not exist")
	}
	if err := s.roleRepo.ReplacePermissions(ctx, role, perms); err != nil {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}

	s.invalidate(ctx, role.Name)
	s.audit.Record(ctx, userID, model.ActionUpdateRole, role.ID.String(), role.Name, map[string]interface{}{
		"permissions": lo.Map(perms, func(p model.Permission, _ int) string { return p.Code }),
	})
	return s.GetRole(ctx, roleID)
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	if codes, hit, err := s.cache.Get(ctx, roleName); err != nil {
		s.log.WithError(err).Warn("permission cache read failed")
	} else if hit {
		return codes, nil
	}

	codes, err := s.roleRepo.PermissionCodes(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions of role %q: %w", roleName, err)
	}
	if err := s.cache.Set(ctx, roleName, codes); err != nil {
		s.log.WithError(err).Warn("permission cache write failed")
	}
	return codes, nil
}

// DefaultPermissions lists every permission code the API checks
var DefaultPermissions = []model.Permission{
	{Code: "channels.read", Name: "View channels", Group: "channels"},
	{Code: "channels.write", Name: "Manage channels", Group: "channels"},
	{Code: "tax_rules.read", Name: "View tax rules", Group: "tax"},
	{Code: "tax_rules.write", Name: "Manage tax rules", Group: "tax"},
	{Code: "quotes.create", Name: "Preview checkout quotes", Group: "orders"},
	{Code: "orders.read", Name: "View orders", Group: "orders"},
	{Code: "orders.write", Name: "Place and update orders", Group: "orders"},
	{Code: "orders.export", Name: "Export orders", Group: "orders"},
	{Code: "catalog.read", Name: "View products", Group: "catalog"},
	{Code: "catalog.write", Name: "Manage products", Group: "catalog"},
	{Code: "customers.read", Name: "View customers", Group: "customers"},
	{Code: "customers.write", Name: "Manage customers", Group: "customers"},
	{Code: "statistics.read", Name: "View sales statistics", Group: "statistics"},
	{Code: "users.read", Name: "View users", Group: "users"},
	{Code: "users.write", Name: "Manage users", Group: "users"},
	{Code: "users.delete", Name: "Delete users", Group: "users"},
	{Code: "audit.read", Name: "View audit log", Group: "audit"},
	{Code: "roles.manage", Name: "Manage roles and permissions", Group: "roles"},
}

var defaultRoles = map[string]struct {
	Description string
	PermCodes   []string
}{
	RoleManager: {
		Description: "Runs channels, pricing and fulfilment",
		PermCodes: []string{
			"channels.read", "channels.write", "tax_rules.read", "tax_rules.write",
			"quotes.create", "orders.read", "orders.write", "orders.export",
			"catalog.read", "catalog.write", "customers.read", "customers.write",
			"statistics.read", "users.read", "audit.read",
		},
	},
	RoleStaff: {
		Description: "Takes orders and looks things up",
		PermCodes: []string{
			"channels.read", "tax_rules.read", "quotes.create",
			"orders.read", "orders.write", "catalog.read", "customers.read",
		},
	},
}

// SeedDefaultRolesAndPermissions upserts the permission catalog and the
// built-in roles. Admin always holds every permission.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	perms := make([]model.Permission, len(DefaultPermissions))
	copy(perms, DefaultPermissions)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range perms {
			if err := s.roleRepo.UpsertPermission(txCtx, &perms[i]); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", perms[i].Code, err)
			}
		}
		byCode := lo.KeyBy(perms, func(p model.Permission) string { return p.Code })

		seed := func(name, description string, granted []model.Permission) error {
			role, err := s.roleRepo.FindByName(txCtx, name)
			if err != nil {
				role = &model.Role{Name: name, Description: description, IsSystem: true}
				if err := s.roleRepo.Create(txCtx, role); err != nil {
					return fmt.Errorf("failed to seed role '%s': %w", name, err)
				}
			}
			if err := s.roleRepo.ReplacePermissions(txCtx, role, granted); err != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", name, err)
			}
			return nil
		}

		if err := seed(RoleAdmin, "Full access", perms); err != nil {
			return err
		}
		for name, def := range defaultRoles {
			granted := lo.FilterMap(def.PermCodes, func(code string, _ int) (model.Permission, bool) {
				p, ok := byCode[code]
				return p, ok
			})
			if err := seed(name, def.Description, granted); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, "")
	return nil
}

func (s *roleService) findRole(ctx context.Context, id string) (*model.Role, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidf("invalid role id")
	}
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, notFoundOr(err, "role")
	}
	return role, nil
}

func (s *roleService) invalidate(ctx context.Context, roleName string) {
	if err := s.cache.Invalidate(ctx, roleName); err != nil {
		s.log.WithError(err).WithField("role", roleName).Warn("permission cache invalidation failed")
	}
}

// --- Helpers ---

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, invalidf("invalid id %q", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toRoleResponse(r model.Role) RoleResponse {
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: lo.Map(r.Permissions, func(p model.Permission, _ int) PermissionResponse { return toPermissionResponse(p) }),
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
