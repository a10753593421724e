package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roboclub-my/console-api/internal/lifecycle"
	"github.com/roboclub-my/console-api/internal/models"
	"github.com/roboclub-my/console-api/internal/service"
	appErrors "github.com/roboclub-my/console-api/pkg/errors"
	"github.com/roboclub-my/console-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT protects routes by requiring a valid access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentActor extracts the lifecycle actor from the request claims. The
// second return is false when the route is not behind the JWT middleware.
func CurrentActor(c *gin.Context) (lifecycle.Actor, bool) {
	claimsValue, exists := c.Get(ContextUserKey)
	if !exists {
		return lifecycle.Actor{}, false
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	if !ok {
		return lifecycle.Actor{}, false
	}
	return lifecycle.Actor{
		UserID:   claims.UserID,
		Role:     claims.Role,
		CenterID: claims.CenterID,
	}, true
}
