package service

import (
	"context"
	"testing"
	"time"

	"storefront-admin/internal/config"
	"storefront-admin/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users  map[string]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}, tokens: map[string]*model.RefreshToken{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID.String()] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	cp := *u
	r.users[u.ID.String()] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) SaveRefreshToken(_ context.Context, t *model.RefreshToken) error {
	cp := *t
	r.tokens[t.Token] = &cp
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	if u, ok := r.users[t.UserID.String()]; ok {
		cp.User = *u
	}
	return &cp, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *fakeUserRepo) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) error {
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, k)
		}
	}
	return nil
}

var testAuth = config.AuthConfig{
	JWTSecret:       "test-secret",
	AccessTokenTTL:  15 * time.Minute,
	RefreshTokenTTL: 24 * time.Hour,
}

func newTestUserService(t *testing.T) (UserService, *fakeUserRepo) {
	t.Helper()
	roles := newFakeRoleRepo()
	require.NoError(t, newTestRoleService(roles).SeedDefaultRolesAndPermissions(context.Background()))
	users := newFakeUserRepo()
	return NewUserService(users, roles, testAuth, testLogger()), users
}

func TestEnsureAdminOnlyOnEmptyTable(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "Admin@Example.com", "supersecret"))
	require.Len(t, users.users, 1)
	require.NoError(t, svc.EnsureAdmin(ctx, "admin2", "other@example.com", "supersecret"))
	assert.Len(t, users.users, 1)

	admin, err := users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)
	assert.NotEqual(t, "supersecret", admin.Password)
}

func TestLoginIssuesSignedToken(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()
	created, err := svc.CreateUser(ctx, CreateUserRequest{Username: "jo", Email: "jo@example.com", Password: "password1", Role: RoleStaff})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "jo@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, LoginUserRequest{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	tok, err := svc.Login(ctx, LoginUserRequest{Email: "JO@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.RefreshToken)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tok.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testAuth.JWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims["sub"])
	assert.Equal(t, RoleStaff, claims["role"])

	stored, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "jo", Email: "jo@example.com", Password: "password1", Role: RoleStaff})
	require.NoError(t, err)
	first, err := svc.Login(ctx, LoginUserRequest{Email: "jo@example.com", Password: "password1"})
	require.NoError(t, err)

	second, err := svc.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, second.RefreshToken))
	assert.Empty(t, users.tokens)
	_, err = svc.RefreshToken(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()
	req := CreateUserRequest{Username: "jo", Email: "jo@example.com", Password: "password1", Role: RoleStaff}
	_, err := svc.CreateUser(ctx, req)
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, req)
	assert.ErrorIs(t, err, ErrConflict)

	unknownRole := req
	unknownRole.Username, unknownRole.Email, unknownRole.Role = "al", "al@example.com", "wizard"
	_, err = svc.CreateUser(ctx, unknownRole)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.GetUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
