package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/matryer/is"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

const rolePolicy = `package greenhouse.authz

import rego.v1

default allow := false

rank := {
	"viewer": 1,
	"operator": 2,
	"editor": 3,
	"admin": 4,
}

allow if {
	rank[input.role] >= rank[input.required]
}
`

func testAuthenticator(t *testing.T) (Enticator, *jwtauth.JWTAuth) {
	t.Helper()
	is := is.New(t)

	tokens := jwtauth.New("HS256", []byte("test-secret"), nil)
	authenticator, err := NewAuthenticator(context.Background(), tokens, strings.NewReader(rolePolicy))
	is.NoErr(err)

	return authenticator, tokens
}

func tokenFor(t *testing.T, tokens *jwtauth.JWTAuth, claims map[string]any) string {
	t.Helper()
	is := is.New(t)

	now := time.Now().UTC()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = now.Add(time.Minute).Unix()
	}
	claims["iat"] = now.Unix()

	_, token, err := tokens.Encode(claims)
	is.NoErr(err)

	return token
}

func protected(authenticator Enticator, minimum types.Role, inner http.HandlerFunc) http.Handler {
	return authenticator.RequireRole(minimum)(inner)
}

func TestOperatorMayActAsViewer(t *testing.T) {
	is := is.New(t)
	authenticator, tokens := testAuthenticator(t)

	var seen Principal
	handler := protected(authenticator, types.RoleViewer, func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetPrincipalFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v0/sensors", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tokens, map[string]any{
		"sub": "u-1", "username": "maria", "role": "operator",
	}))
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusOK)
	is.Equal(seen.Username, "maria")
	is.Equal(seen.Role, types.RoleOperator)
}

func TestViewerMayNotActAsEditor(t *testing.T) {
	is := is.New(t)
	authenticator, tokens := testAuthenticator(t)

	handler := protected(authenticator, types.RoleEditor, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v0/rules", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tokens, map[string]any{
		"sub": "u-1", "username": "maria", "role": "viewer",
	}))
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusForbidden)
}

func TestMissingAndMalformedTokensAreRejected(t *testing.T) {
	is := is.New(t)
	authenticator, _ := testAuthenticator(t)

	handler := protected(authenticator, types.RoleViewer, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v0/sensors", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	is.Equal(res.Code, http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/api/v0/sensors", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	is.Equal(res.Code, http.StatusUnauthorized)
}

func TestRefreshTokensCannotAccessTheAPI(t *testing.T) {
	is := is.New(t)
	authenticator, tokens := testAuthenticator(t)

	handler := protected(authenticator, types.RoleViewer, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v0/sensors", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tokens, map[string]any{
		"sub": "u-1", "token_use": "refresh",
	}))
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusUnauthorized)
}

func TestExpiredTokensAreRejected(t *testing.T) {
	is := is.New(t)
	authenticator, tokens := testAuthenticator(t)

	handler := protected(authenticator, types.RoleViewer, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v0/sensors", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tokens, map[string]any{
		"sub": "u-1", "role": "admin",
		"exp": time.Now().UTC().Add(-time.Minute).Unix(),
	}))
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusUnauthorized)
}
