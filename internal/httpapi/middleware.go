package httpapi

import (
	"context"
	"net/http"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
)

type contextKey string

const callerKey contextKey = "caller"

// usernameHeader stands in for the gateway authorizer on local runs.
const usernameHeader = "x-username"

// CallerIdentity extracts the authenticated username. Behind API Gateway the
// JWT authorizer has already validated the token and its claims travel with
// the proxied request context; locally the x-username header stands in for
// it. The identity is only ever passed onward as an argument.
func CallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := ""
		if reqCtx, ok := core.GetAPIGatewayV2ContextFromContext(r.Context()); ok {
			if reqCtx.Authorizer != nil && reqCtx.Authorizer.JWT != nil {
				username = reqCtx.Authorizer.JWT.Claims["username"]
			}
		}
		if username == "" {
			username = r.Header.Get(usernameHeader)
		}
		if username == "" {
			respondError(w, http.StatusUnauthorized, "missing caller identity")
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// caller returns the identity stored by CallerIdentity.
func caller(r *http.Request) string {
	v, _ := r.Context().Value(callerKey).(string)
	return v
}
