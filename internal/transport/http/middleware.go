package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"leaselab/pkg/apperrors"
	"leaselab/pkg/requestcontext"
)

type siteKey struct{}

// requestScope stamps every request with a correlation ID, the request time
// and the acting identity from the X-Actor / X-Actor-Role headers.
func requestScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, reqID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		if actor := r.Header.Get("X-Actor"); actor != "" {
			ctx = requestcontext.WithActor(ctx, actor)
		}
		if role := r.Header.Get("X-Actor-Role"); role != "" {
			ctx = requestcontext.WithActorRole(ctx, role)
		}

		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSite resolves the tenant from the X-Site-ID header. Every API route
// is site-scoped; a request without a site cannot be served.
func requireSite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siteID := r.Header.Get("X-Site-ID")
		if siteID == "" {
			respondJSON(w, http.StatusBadRequest, errorBody(string(apperrors.CodeValidation), "X-Site-ID header is required"))
			return
		}
		ctx := context.WithValue(r.Context(), siteKey{}, siteID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func siteFrom(r *http.Request) string {
	if siteID, ok := r.Context().Value(siteKey{}).(string); ok {
		return siteID
	}
	return ""
}
