package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/service"
)

type contactRepoStub struct {
	messages map[string]*models.ContactMessage
	seq      int
}

func newContactRepoStub() *contactRepoStub {
	return &contactRepoStub{messages: make(map[string]*models.ContactMessage)}
}

func (r *contactRepoStub) List(ctx context.Context, status models.ContactStatus, page, pageSize int) ([]models.ContactMessage, int, error) {
	result := make([]models.ContactMessage, 0, len(r.messages))
	for _, m := range r.messages {
		if status != "" && m.Status != status {
			continue
		}
		result = append(result, *m)
	}
	return result, len(result), nil
}

func (r *contactRepoStub) FindByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	if m, ok := r.messages[id]; ok {
		copy := *m
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *contactRepoStub) Create(ctx context.Context, message *models.ContactMessage) error {
	r.seq++
	message.ID = fmt.Sprintf("msg-%d", r.seq)
	stored := *message
	r.messages[message.ID] = &stored
	return nil
}

func (r *contactRepoStub) UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error {
	m, ok := r.messages[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.Status = status
	return nil
}

func (r *contactRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.messages[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.messages, id)
	return nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestContactHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newContactRepoStub()
	handler := NewContactHandler(service.NewContactService(repo, nil, nil))

	payload, _ := json.Marshal(service.CreateContactRequest{
		Name:    "A Visitor",
		Email:   "visitor@example.com",
		Subject: "Question about batches",
		Message: "When does the next cohort start?",
	})
	c, w := newGinContext(http.MethodPost, "/contact", payload)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.messages, 1)
	for _, m := range repo.messages {
		require.Equal(t, models.ContactStatusNew, m.Status)
	}
}

func TestContactHandlerCreateInvalidEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newContactRepoStub()
	handler := NewContactHandler(service.NewContactService(repo, nil, nil))

	payload, _ := json.Marshal(service.CreateContactRequest{
		Name:    "A Visitor",
		Email:   "not-an-email",
		Subject: "Hello",
		Message: "Hi",
	})
	c, w := newGinContext(http.MethodPost, "/contact", payload)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, repo.messages)
}

func TestContactHandlerGetMarksRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newContactRepoStub()
	repo.messages["msg-1"] = &models.ContactMessage{
		ID:     "msg-1",
		Name:   "A Visitor",
		Email:  "visitor@example.com",
		Status: models.ContactStatusNew,
	}
	handler := NewContactHandler(service.NewContactService(repo, nil, nil))

	c, w := newGinContext(http.MethodGet, "/contact/msg-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "msg-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.ContactStatusRead, repo.messages["msg-1"].Status)
}

func TestContactHandlerGetUnknown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newContactRepoStub()
	handler := NewContactHandler(service.NewContactService(repo, nil, nil))

	c, w := newGinContext(http.MethodGet, "/contact/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestContactHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newContactRepoStub()
	repo.messages["msg-1"] = &models.ContactMessage{ID: "msg-1", Status: models.ContactStatusRead}
	handler := NewContactHandler(service.NewContactService(repo, nil, nil))

	payload, _ := json.Marshal(service.UpdateContactStatusRequest{Status: models.ContactStatusReplied})
	c, w := newGinContext(http.MethodPut, "/contact/msg-1/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "msg-1"}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.ContactStatusReplied, repo.messages["msg-1"].Status)
}

func TestContactHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newContactRepoStub()
	repo.messages["msg-1"] = &models.ContactMessage{ID: "msg-1"}
	handler := NewContactHandler(service.NewContactService(repo, nil, nil))

	c, w := newGinContext(http.MethodDelete, "/contact/msg-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "msg-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, repo.messages)
}
