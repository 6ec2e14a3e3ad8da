package middlewares

import (
	"context"
	"fms/src/types"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// VerifyIdToken accepts Firebase ID tokens. Site and roles come from custom
// claims.
func VerifyIdToken(verifier IDTokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		idToken, ok := bearerToken(ctx)
		if !ok {
			unauthorized(ctx, "missing bearer token")
			return
		}
		token, err := verifier.VerifyIDToken(ctx.Request.Context(), idToken)
		if err != nil {
			log.Printf("[Auth] Failed to verify ID token: %s\n", err.Error())
			unauthorized(ctx, "failed to verify ID token")
			return
		}
		SetAuth(ctx, firebaseAuthContext(token))
		ctx.Next()
	}
}

func firebaseAuthContext(token *auth.Token) types.AuthContext {
	a := types.AuthContext{UID: token.UID}
	if site, ok := token.Claims["site_id"].(string); ok {
		a.SiteID = site
	}
	if roles, ok := token.Claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				a.Roles = append(a.Roles, s)
			}
		}
	}
	return a
}
