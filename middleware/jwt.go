package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edumate-ai/tutor-be/types"
	"github.com/edumate-ai/tutor-be/utils"
)

type JsonResponse struct {
	Error string `json:"error"`
}

const adminContextKey = "admin"

func AdminAuthMiddleware(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, JsonResponse{Error: "Authorization header is required"})
		return
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, JsonResponse{Error: "Authorization header format must be Bearer {token}"})
		return
	}

	claims, err := utils.ParseAdminToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, JsonResponse{Error: "Invalid admin token"})
		return
	}
	if claims.Role != types.USER_ROLE_ADMIN {
		c.AbortWithStatusJSON(http.StatusForbidden, JsonResponse{Error: "Admin role required"})
		return
	}

	c.Set(adminContextKey, claims)
	c.Next()
}

// AdminClaimsFromContext returns the claims stored by AdminAuthMiddleware.
func AdminClaimsFromContext(c *gin.Context) (*utils.AdminClaims, bool) {
	value, exists := c.Get(adminContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*utils.AdminClaims)
	return claims, ok
}
