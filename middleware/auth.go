package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/clipbot/utils"
)

const (
	// ContextSubjectKey stores the authenticated token subject inside Gin context.
	ContextSubjectKey = "subject"
	// ContextRoleKey stores the token role.
	ContextRoleKey = "role"
	// ContextTokenKey and ContextTokenExpiryKey let handlers revoke the presented token.
	ContextTokenKey       = "token"
	ContextTokenExpiryKey = "token_expiry"
)

// AdminRequired ensures the request carries a valid admin JWT.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		if utils.IsTokenRevoked(ctx.Request.Context(), tokenString) {
			utils.Abort(ctx, http.StatusUnauthorized, 40104, "token revoked")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}
		if claims.Role != utils.RoleAdmin {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin role required")
			return
		}

		ctx.Set(ContextSubjectKey, claims.Subject)
		ctx.Set(ContextRoleKey, claims.Role)
		ctx.Set(ContextTokenKey, tokenString)
		if claims.ExpiresAt != nil {
			ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
		}
		ctx.Next()
	}
}
