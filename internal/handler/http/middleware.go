package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/internal/service"
	apperrors "github.com/keymint/licensing/pkg/errors"
	"github.com/keymint/licensing/pkg/httputil"
	"github.com/keymint/licensing/pkg/logger"
)

type contextKey string

const brandContextKey contextKey = "authenticated_brand"

// BrandFromContext returns the brand authenticated by an API-key middleware,
// or nil when the request is unauthenticated.
func BrandFromContext(ctx context.Context) *domain.Brand {
	brand, _ := ctx.Value(brandContextKey).(*domain.Brand)
	return brand
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

type authenticator func(ctx context.Context, key string) (*domain.Brand, error)

// requireKey authenticates the request with the given lookup and stores the
// resolved brand in the context. The provisioning and validation keys are
// disjoint trust domains; each route group mounts exactly one of them.
func requireKey(authenticate authenticator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing API key"), l)
				return
			}

			brand, err := authenticate(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			ctx := context.WithValue(r.Context(), brandContextKey, brand)
			ctx = logger.WithBrandID(ctx, brand.ID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("brand_id", brand.ID)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireProvisioningKey authenticates brand-scoped write operations.
func RequireProvisioningKey(brands *service.BrandService, l *slog.Logger) func(http.Handler) http.Handler {
	return requireKey(brands.AuthenticateByProvisioningKey, l)
}

// RequireValidationKey authenticates product-facing validate and activate
// operations.
func RequireValidationKey(brands *service.BrandService, l *slog.Logger) func(http.Handler) http.Handler {
	return requireKey(brands.AuthenticateByValidationKey, l)
}

// RequireBrandOwnership rejects requests whose {brandID} path parameter does
// not match the authenticated brand. Mounted after an API-key middleware.
func RequireBrandOwnership(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			brand := BrandFromContext(r.Context())
			if brand == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing API key"), l)
				return
			}

			if chi.URLParam(r, "brandID") != brand.ID {
				httputil.WriteError(w, r, apperrors.Forbidden("brand does not match authenticated tenant"), l)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON sets the response content type for API routes.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
