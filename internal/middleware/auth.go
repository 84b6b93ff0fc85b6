package middleware

import (
	"context"
	"net/http"
	"strings"

	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Context keys set by Authenticate
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	adminRole     = "admin"
)

// PermissionLookup resolves the permission codes granted to a role
type PermissionLookup interface {
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
}

// Auth validates access tokens and enforces permissions
type Auth struct {
	secret        []byte
	perms         PermissionLookup
	secureCookies bool
	log           *logrus.Logger
}

// NewAuth builds the auth middleware. secureCookies switches cookies to
// SameSite=None; Secure for cross-origin deployments.
func NewAuth(jwtSecret string, perms PermissionLookup, secureCookies bool, log *logrus.Logger) *Auth {
	return &Auth{secret: []byte(jwtSecret), perms: perms, secureCookies: secureCookies, log: log}
}

// Authenticate requires a valid access token from the cookie or a Bearer header
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.identify(c) {
			c.Next()
		}
	}
}

// identify sets the caller on c, or aborts and returns false
func (a *Auth) identify(c *gin.Context) bool {
	tokenString, cookieErr := c.Cookie(accessCookie)
	if cookieErr != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return false
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return false
		}
		tokenString = parts[1]
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return false
	}

	sub, _ := claims["sub"].(string)
	role, ok := claims["role"].(string)
	if sub == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return false
	}

	c.Set(ContextUserID, sub)
	c.Set(ContextUserRole, role)
	return true
}

// RequirePermission authenticates and then checks every code against the
// caller's role. Admin always passes.
func (a *Auth) RequirePermission(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.identify(c) {
			return
		}

		role := UserRole(c)
		if role == adminRole {
			return
		}

		granted, err := a.perms.GetPermissionsByRoleName(c.Request.Context(), role)
		if err != nil {
			a.log.WithError(err).WithField("role", role).Error("permission lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}
		set := make(map[string]bool, len(granted))
		for _, p := range granted {
			set[p] = true
		}
		for _, required := range codes {
			if !set[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}
	}
}

// SetTokenCookies stores both tokens as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken string, accessMaxAge int, refreshToken string, refreshMaxAge int) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(accessCookie, accessToken, accessMaxAge, "/", "", a.secureCookies, true)
	c.SetCookie(refreshCookie, refreshToken, refreshMaxAge, "/api/auth", "", a.secureCookies, true)
}

// ClearTokenCookies expires both token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(accessCookie, "", -1, "/", "", a.secureCookies, true)
	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", a.secureCookies, true)
}

// RefreshToken reads the refresh cookie, "" when absent
func RefreshToken(c *gin.Context) string {
	token, _ := c.Cookie(refreshCookie)
	return token
}

func (a *Auth) sameSite() http.SameSite {
	if a.secureCookies {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// UserID returns the authenticated user's id, "" when unauthenticated
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// UserRole returns the authenticated user's role name
func UserRole(c *gin.Context) string {
	return c.GetString(ContextUserRole)
}
