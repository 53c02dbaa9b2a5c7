package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/academy-api/internal/models"
)

func performRBAC(t *testing.T, claims *models.JWTClaims, paramID string, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}

	RBAC(allowed...)(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return w
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	w := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "", string(models.RoleAdmin), string(models.RoleMarketing))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	w := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "", string(models.RoleAdmin))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	w := performRBAC(t, nil, "", string(models.RoleAdmin))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	w := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u1", string(models.RoleAdmin), "SELF")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRBACSelfMismatchForbidden(t *testing.T) {
	w := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u2", string(models.RoleAdmin), "SELF")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACReviewModerationRoles(t *testing.T) {
	moderators := []string{string(models.RoleAdmin), string(models.RoleSupport)}

	w := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleSupport}, "", moderators...)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRBAC(t, &models.JWTClaims{UserID: "u2", Role: models.RoleMarketing}, "", moderators...)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleSupport})

	RequireRoles(models.RoleAdmin, models.RoleSupport)(c)
	require.False(t, c.IsAborted())
}
