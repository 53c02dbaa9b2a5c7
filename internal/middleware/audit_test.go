package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/repository"
)

func newAuditEngine(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	repo := repository.NewAuditRepository(sqlx.NewDb(db, "sqlmock"))

	r := gin.New()
	group := r.Group("/admin", Audit(repo, models.AuditActionAdminMutation, "users"))
	group.POST("/users", func(c *gin.Context) { c.Status(http.StatusCreated) })
	group.POST("/users/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	group.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r, mock, func() { db.Close() }
}

func TestAuditRecordsSuccessfulMutation(t *testing.T) {
	r, mock, cleanup := newAuditEngine(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin/users", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	r, mock, cleanup := newAuditEngine(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin/users/fail", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSkipsReads(t *testing.T) {
	r, mock, cleanup := newAuditEngine(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/admin/users", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
