package middleware

import (
	"net/http"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/logger"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity headers set by the upstream auth gateway
const (
	TenantIDHeader = "X-Tenant-ID"
	UserIDHeader   = "X-User-ID"
)

// Gin context keys for the caller identity
const (
	TenantIDKey = "tenant_id"
	UserIDKey   = "user_id"
)

// Identity reads the caller's tenant and user from the gateway headers.
// Both must be UUIDs; anything else is rejected with 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(TenantIDHeader))
		if err != nil {
			abortUnauthorized(c, "Missing or invalid "+TenantIDHeader+" header")
			return
		}
		userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil {
			abortUnauthorized(c, "Missing or invalid "+UserIDHeader+" header")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Set(UserIDKey, userID)

		ctx := logger.WithTenantID(c.Request.Context(), tenantID.String())
		ctx = logger.WithUserID(ctx, userID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}

// GetTenantID returns the tenant set by Identity
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	return getUUID(c, TenantIDKey)
}

// GetUserID returns the user set by Identity
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	return getUUID(c, UserIDKey)
}

func getUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	v, exists := c.Get(key)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
