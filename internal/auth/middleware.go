package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository/postgrest"
)

const ctxIdentityKey = "identity"

// Middleware authenticates every request and stores the Identity on both the
// gin context and the request context.
func Middleware(resolver *Resolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		ctx := postgrest.WithAccessToken(c.Request.Context(), token)

		id, err := resolver.Resolve(ctx, token)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnauthenticated):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			case errors.Is(err, ErrNoProfile), errors.Is(err, ErrInactive):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			default:
				logger.Error("identity resolution failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "unable to resolve user"})
			}
			return
		}

		c.Set(ctxIdentityKey, id)
		c.Request = c.Request.WithContext(WithIdentity(ctx, id))
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := Current(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticated.Error()})
			return
		}
		if !id.Is(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role for this action"})
			return
		}
		c.Next()
	}
}

// Current returns the identity stored by Middleware.
func Current(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
