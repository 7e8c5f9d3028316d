package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/config"
)

const (
	SubjectKey = "subject"
	RoleKey    = "role"
)

// Auth validates the Bearer JWT and requires one of roles.
func Auth(sec config.SecurityConfig, roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not allowed"})
			return
		}

		ctx.Set(SubjectKey, claims.Subject)
		ctx.Set(RoleKey, claims.Role)
		ctx.Next()
	}
}

// GetSubject retrieves the authenticated subject from the Gin context.
func GetSubject(c *gin.Context) string {
	if v, exists := c.Get(SubjectKey); exists {
		return v.(string)
	}
	return ""
}

// GetRole retrieves the authenticated role from the Gin context.
func GetRole(c *gin.Context) string {
	if v, exists := c.Get(RoleKey); exists {
		return v.(string)
	}
	return ""
}

// GetPlayerID parses the subject of a player token.
func GetPlayerID(c *gin.Context) (uuid.UUID, bool) {
	if GetRole(c) != RolePlayer {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(GetSubject(c))
	return id, err == nil
}
