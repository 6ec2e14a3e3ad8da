package middlewares

import (
	"context"
	"errors"
	"fms/src/types"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(SecureHeaders, mw)
	r.GET("/me", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, GetAuth(ctx))
	})
	return r
}

func signed(t *testing.T, claims types.Claims, key string) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	r := newRouter(AuthMiddleware(secret))
	tok := signed(t, types.Claims{
		SiteID: "s1",
		Roles:  []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, secret)

	w := get(r, tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", gjson.Get(w.Body.String(), "uid").String())
	assert.Equal(t, "s1", gjson.Get(w.Body.String(), "site_id").String())
	assert.Equal(t, "admin", gjson.Get(w.Body.String(), "roles.0").String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := newRouter(AuthMiddleware(secret))
	valid := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, signed(t, types.Claims{RegisteredClaims: valid}, "other-secret")).Code)

	expired := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}
	w := get(r, signed(t, types.Claims{RegisteredClaims: expired}, secret))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", gjson.Get(w.Body.String(), "error.code").String())

	noSubject := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	assert.Equal(t, http.StatusUnauthorized, get(r, signed(t, types.Claims{RegisteredClaims: noSubject}, secret)).Code)
}

func TestUIDClaimWinsOverSubject(t *testing.T) {
	r := newRouter(AuthMiddleware(secret))
	tok := signed(t, types.Claims{
		UID:              "firebase-uid",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
	}, secret)
	w := get(r, tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "firebase-uid", gjson.Get(w.Body.String(), "uid").String())
}

type fakeVerifier struct {
	token *auth.Token
	err   error
}

func (f fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return f.token, f.err
}

func TestVerifyIdToken(t *testing.T) {
	r := newRouter(VerifyIdToken(fakeVerifier{token: &auth.Token{
		UID:    "fb-1",
		Claims: map[string]any{"site_id": "s2", "roles": []any{"user", "admin"}},
	}}))
	w := get(r, "id-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fb-1", gjson.Get(w.Body.String(), "uid").String())
	assert.Equal(t, "s2", gjson.Get(w.Body.String(), "site_id").String())
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "roles.#").Int())

	r = newRouter(VerifyIdToken(fakeVerifier{err: errors.New("expired")}))
	assert.Equal(t, http.StatusUnauthorized, get(r, "id-token").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/", func(ctx *gin.Context) {
		_, ok := ctx.Request.Context().Deadline()
		ctx.JSON(http.StatusOK, gin.H{"deadline": ok})
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	assert.True(t, gjson.Get(w.Body.String(), "deadline").Bool())
}
