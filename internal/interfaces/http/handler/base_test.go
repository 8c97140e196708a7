package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/logger"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/dto"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandlerSuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		c, w := newTestContext()
		h.Success(c, gin.H{"synced": 3})
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		assert.Nil(t, resp.Error)
	})

	t.Run("created", func(t *testing.T) {
		c, w := newTestContext()
		h.Created(c, gin.H{"id": "x"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("no content", func(t *testing.T) {
		c, w := newTestContext()
		h.NoContent(c)
		c.Writer.WriteHeaderNow()
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestBaseHandlerErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), "req-abc"))

	h.BadRequest(c, "Invalid id format")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, "req-abc", resp.Error.RequestID)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"not found", shared.NewNotFoundError("connection item", "abc"), http.StatusNotFound, dto.ErrCodeNotFound, "connection item abc not found"},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists, ""},
		{"validation", shared.NewValidationError("quantity must be positive"), http.StatusBadRequest, dto.ErrCodeValidation, "quantity must be positive"},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest, dto.ErrCodeInvalidInput, ""},
		{"insufficient stock", shared.ErrInsufficientStock, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock, ""},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, ""},
		{"wrapped domain error", fmt.Errorf("record sale: %w", shared.ErrInsufficientStock), http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock, ""},
		{
			"provider error",
			&shared.ProviderError{Provider: "plaid", Operation: "transactions/get", ProviderCode: "ITEM_LOGIN_REQUIRED", StatusCode: 400},
			http.StatusBadGateway, dto.ErrCodeProvider, "plaid transactions/get failed: ITEM_LOGIN_REQUIRED",
		},
		{
			"provider rate limit",
			fmt.Errorf("sync: %w", &shared.ProviderError{Provider: "stripe", Operation: "list customers", StatusCode: http.StatusTooManyRequests}),
			http.StatusTooManyRequests, dto.ErrCodeProviderRateLimited, "stripe list customers failed",
		},
		{"encryption error", &shared.EncryptionError{Op: "decrypt"}, http.StatusInternalServerError, dto.ErrCodeEncryption, "Stored credential could not be read"},
		{"unknown error", assert.AnError, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, resp.Error.Message)
			}
			assert.Len(t, c.Errors, 1)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()
		h.HandleError(c, nil)
		assert.Empty(t, w.Body.String())
	})
}

func TestBaseHandlerIdentity(t *testing.T) {
	h := &BaseHandler{}

	t.Run("present", func(t *testing.T) {
		c, _ := newTestContext()
		tenantID, userID := uuid.New(), uuid.New()
		c.Set(middleware.TenantIDKey, tenantID)
		c.Set(middleware.UserIDKey, userID)

		gotTenant, gotUser, ok := h.identity(c)
		require.True(t, ok)
		assert.Equal(t, tenantID, gotTenant)
		assert.Equal(t, userID, gotUser)
	})

	t.Run("missing", func(t *testing.T) {
		c, w := newTestContext()
		_, _, ok := h.identity(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestBaseHandlerPathID(t *testing.T) {
	h := &BaseHandler{}
	id := uuid.New()

	c, _ := newTestContext()
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := h.pathID(c, "id")
	require.True(t, ok)
	assert.Equal(t, id, got)

	c, w := newTestContext()
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, ok = h.pathID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
