package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-admin/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type mockPerms struct {
	mock.Mock
}

func (m *mockPerms) GetPermissionsByRoleName(ctx context.Context, role string) ([]string, error) {
	args := m.Called(ctx, role)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

func signToken(t *testing.T, secret, sub, role string, ttl time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protectedRouter(auth *Auth, codes ...string) *gin.Engine {
	r := gin.New()
	r.GET("/x", auth.RequirePermission(codes...), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c)+"|"+UserRole(c))
	})
	return r
}

func doGet(r http.Handler, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequirePermission(t *testing.T) {
	log, _ := test.NewNullLogger()
	perms := &mockPerms{}
	perms.On("GetPermissionsByRoleName", mock.Anything, "staff").Return([]string{"orders.read"}, nil)
	auth := NewAuth(testSecret, perms, false, log)

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doGet(protectedRouter(auth, "orders.read"), "").Code)
	})
	t.Run("wrong secret", func(t *testing.T) {
		tok := signToken(t, "other", "u1", "staff", time.Minute)
		assert.Equal(t, http.StatusUnauthorized, doGet(protectedRouter(auth, "orders.read"), tok).Code)
	})
	t.Run("expired", func(t *testing.T) {
		tok := signToken(t, testSecret, "u1", "staff", -time.Minute)
		assert.Equal(t, http.StatusUnauthorized, doGet(protectedRouter(auth, "orders.read"), tok).Code)
	})
	t.Run("granted", func(t *testing.T) {
		w := doGet(protectedRouter(auth, "orders.read"), signToken(t, testSecret, "u1", "staff", time.Minute))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1|staff", w.Body.String())
	})
	t.Run("missing permission", func(t *testing.T) {
		w := doGet(protectedRouter(auth, "orders.write"), signToken(t, testSecret, "u1", "staff", time.Minute))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "orders.write")
	})
	t.Run("admin bypasses lookup", func(t *testing.T) {
		w := doGet(protectedRouter(auth, "roles.manage"), signToken(t, testSecret, "u0", "admin", time.Minute))
		assert.Equal(t, http.StatusOK, w.Code)
	})
	perms.AssertNotCalled(t, "GetPermissionsByRoleName", mock.Anything, "admin")
}

func TestRequirePermissionLookupFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	perms := &mockPerms{}
	perms.On("GetPermissionsByRoleName", mock.Anything, "staff").Return(nil, errors.New("db down"))
	auth := NewAuth(testSecret, perms, false, log)

	w := doGet(protectedRouter(auth, "orders.read"), signToken(t, testSecret, "u1", "staff", time.Minute))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestIDEchoesOrAssigns(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestID(), Logger(log))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

type memoryIdemStore struct {
	inFlight map[string]bool
	done     map[string]cache.StoredResponse
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{inFlight: map[string]bool{}, done: map[string]cache.StoredResponse{}}
}

func (s *memoryIdemStore) Begin(_ context.Context, key string) (*cache.StoredResponse, error) {
	if resp, ok := s.done[key]; ok {
		return &resp, nil
	}
	if s.inFlight[key] {
		return nil, cache.ErrKeyInFlight
	}
	s.inFlight[key] = true
	return nil, nil
}

func (s *memoryIdemStore) Complete(_ context.Context, key string, resp cache.StoredResponse) error {
	delete(s.inFlight, key)
	s.done[key] = resp
	return nil
}

func (s *memoryIdemStore) Release(_ context.Context, key string) error {
	delete(s.inFlight, key)
	return nil
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := newMemoryIdemStore()
	calls := 0

	r := gin.New()
	r.POST("/orders", Idempotency(store, log), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"n": calls})
	})

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{}"))
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := post("k1")
	second := post("k1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	post("")
	post("k2")
	assert.Equal(t, 3, calls)
}

func TestIdempotencyReleasesOnFailureAndRejectsInFlight(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := newMemoryIdemStore()
	fail := true

	r := gin.New()
	r.POST("/orders", Idempotency(store, log), func(c *gin.Context) {
		if fail {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(HeaderIdempotencyKey, "k")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusBadRequest, post())
	fail = false
	assert.Equal(t, http.StatusCreated, post())

	store.inFlight[":POST:/orders:busy"] = true
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(HeaderIdempotencyKey, "busy")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}
