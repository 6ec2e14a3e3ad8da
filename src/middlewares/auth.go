package middlewares

import (
	"errors"
	"fms/src/types"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const authContextKey = "auth"

func bearerToken(ctx *gin.Context) (string, bool) {
	header := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func unauthorized(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "Unauthorized", "message": message}})
}

// AuthMiddleware verifies an HS256 bearer token and attaches the caller to
// the request. Tokens are issued elsewhere.
func AuthMiddleware(secret string) gin.HandlerFunc {
	jwtKey := []byte(secret)
	return func(ctx *gin.Context) {
		reqToken, ok := bearerToken(ctx)
		if !ok {
			unauthorized(ctx, "missing bearer token")
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return jwtKey, nil
		})
		if err != nil {
			log.Printf("[Auth] token error: %s\n", err.Error())
			unauthorized(ctx, "invalid token")
			return
		}
		if !tkn.Valid {
			unauthorized(ctx, "invalid token")
			return
		}
		auth := claims.AuthContext()
		if auth.UID == "" {
			unauthorized(ctx, "token has no subject")
			return
		}
		SetAuth(ctx, auth)
		ctx.Next()
	}
}

func SetAuth(ctx *gin.Context, auth types.AuthContext) {
	ctx.Set(authContextKey, auth)
	ctx.Set("uid", auth.UID)
	ctx.Set("site", auth.SiteID)
}

// GetAuth returns the caller attached by one of the auth middlewares.
func GetAuth(ctx *gin.Context) types.AuthContext {
	v, ok := ctx.Get(authContextKey)
	if !ok {
		return types.AuthContext{}
	}
	auth, _ := v.(types.AuthContext)
	return auth
}
