package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/matryer/is"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/users"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/presentation/api"
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

func TestHealthEndpointIsOpen(t *testing.T) {
	router, _, is := setupTest(t)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/health", "")

	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestSensorsRequireAToken(t *testing.T) {
	router, _, is := setupTest(t)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/api/v0/sensors/s-1", "")

	is.Equal(resp.StatusCode, http.StatusUnauthorized)
}

func TestGetUnknownSensorReturns404(t *testing.T) {
	router, tokens, is := setupTest(t)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/api/v0/sensors/nosuchsensor", viewerToken(is, tokens))

	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestViewerCannotCreateSensors(t *testing.T) {
	router, tokens, is := setupTest(t)
	server := httptest.NewServer(router)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v0/sensors", strings.NewReader(`{"id":"s-1"}`))
	req.Header.Set("Authorization", "Bearer "+viewerToken(is, tokens))
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	is.Equal(resp.StatusCode, http.StatusForbidden)
}

func setupTest(t *testing.T) (*chi.Mux, *jwtauth.JWTAuth, *is.I) {
	is := is.New(t)
	ctx := context.Background()

	tokens := jwtauth.New("HS256", []byte("test-secret"), nil)

	accounts := &users.ManagementMock{
		AuthFunc: func() *jwtauth.JWTAuth { return tokens },
	}
	registry := &devices.ManagementMock{
		GetSensorFunc: func(ctx context.Context, sensorID string) (types.Sensor, error) {
			return types.Sensor{}, devices.ErrNotFound
		},
	}

	router, err := api.RegisterHandlers(ctx, chi.NewRouter(), strings.NewReader(rolePolicy), api.Services{
		Devices: registry,
		Users:   accounts,
	})
	is.NoErr(err)

	return router, tokens, is
}

func viewerToken(is *is.I, tokens *jwtauth.JWTAuth) string {
	now := time.Now().UTC()
	_, token, err := tokens.Encode(map[string]any{
		"sub": "u-1", "username": "maria", "role": "viewer",
		"iat": now.Unix(), "exp": now.Add(time.Minute).Unix(),
	})
	is.NoErr(err)
	return token
}

func testRequest(is *is.I, ts *httptest.Server, method, path, token string) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	respBody, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	return resp, string(respBody)
}
