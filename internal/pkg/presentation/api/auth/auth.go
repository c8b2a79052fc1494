// Package auth guards the API routes. Tokens are verified against the
// user service's signing key, then the authorization decision itself
// is delegated to a rego policy so deployments can reshape the role
// model without recompiling.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.opentelemetry.io/otel"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

type principalContextKey struct{ name string }

var principalCtxKey = &principalContextKey{"principal"}

var tracer = otel.Tracer("iot-greenhouse-mgmt/authz")

// Principal is the authenticated caller, as stored in the request
// context by the middleware.
type Principal struct {
	UserID   string
	Username string
	Role     types.Role
}

type Enticator interface {
	RequireRole(minimum types.Role) func(http.Handler) http.Handler
}

type impl struct {
	tokens *jwtauth.JWTAuth
	query  rego.PreparedEvalQuery
}

func NewAuthenticator(ctx context.Context, tokens *jwtauth.JWTAuth, policies io.Reader) (Enticator, error) {
	module, err := io.ReadAll(policies)
	if err != nil {
		return nil, fmt.Errorf("unable to read authz policies: %s", err.Error())
	}

	query, err := rego.New(
		rego.Query("x = data.greenhouse.authz.allow"),
		rego.Module("authz.rego", string(module)),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}

	return &impl{tokens: tokens, query: query}, nil
}

func (a *impl) RequireRole(minimum types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error

			logger := logging.GetFromContext(r.Context())

			_, span := tracer.Start(r.Context(), "check-auth")
			defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				err = errors.New("authorization header missing")
				logger.Info(err.Error())
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			token, err := jwtauth.VerifyToken(a.tokens, header[7:])
			if err != nil {
				logger.Info("token rejected", "err", err.Error())
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				logger.Error("could not read token claims", "err", err.Error())
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			if use, _ := claims["token_use"].(string); use == "refresh" {
				err = errors.New("refresh tokens cannot access the api")
				logger.Info(err.Error())
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			role, _ := claims["role"].(string)

			input := map[string]any{
				"role":     role,
				"required": string(minimum),
			}

			results, err := a.query.Eval(r.Context(), rego.EvalInput(input))
			if err != nil {
				logger.Error("opa eval failed", "err", err.Error())
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if len(results) == 0 {
				err = errors.New("opa query could not be satisfied")
				logger.Error("auth failed", "err", err.Error())
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			allowed, ok := results[0].Bindings["x"].(bool)
			if !ok {
				err = errors.New("unexpected result type from authz policy")
				logger.Error("opa error", "err", err.Error())
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if !allowed {
				err = errors.New("authorization failed")
				logger.Warn(err.Error(), "role", role, "required", string(minimum))
				http.Error(w, "Unauthorized", http.StatusForbidden)
				return
			}

			userID, _ := claims["sub"].(string)
			username, _ := claims["username"].(string)

			r = r.WithContext(WithPrincipal(r.Context(), Principal{
				UserID:   userID,
				Username: username,
				Role:     types.Role(role),
			}))

			next.ServeHTTP(w, r)
		})
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// GetPrincipalFromContext returns the authenticated caller, if any.
func GetPrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok
}
