package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keymint/licensing/internal/service"
	"github.com/keymint/licensing/pkg/health"
	"github.com/keymint/licensing/pkg/middleware"
)

// NewRouter creates a chi router with all licensing routes registered.
func NewRouter(
	brandService *service.BrandService,
	licenseKeyService *service.LicenseKeyService,
	licenseService *service.LicenseService,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("licensing"))
	r.Use(middleware.Tracing("licensing"))

	// Operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	internalHandler := NewInternalHandler(licenseService, logger)
	r.Post("/internal/v1/licenses/sweep-expired", internalHandler.SweepExpired)

	// Admin bootstrap surface
	brandHandler := NewBrandHandler(brandService, logger)
	provisioningHandler := NewProvisioningHandler(brandService, licenseKeyService, licenseService, logger)

	r.Route("/api/v1/brands", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", brandHandler.RegisterBrand)

		r.Route("/{brandID}", func(r chi.Router) {
			r.Get("/", brandHandler.GetBrand)

			// Provisioning API
			r.Group(func(r chi.Router) {
				r.Use(RequireProvisioningKey(brandService, logger))
				r.Use(RequireBrandOwnership(logger))

				r.Post("/products", provisioningHandler.CreateProduct)
				r.Get("/products", provisioningHandler.ListProducts)
				r.Post("/license-keys", provisioningHandler.CreateLicenseKey)
				r.Get("/license-keys", provisioningHandler.ListLicenseKeys)
				r.Get("/license-keys/{licenseKeyID}", provisioningHandler.GetLicenseKey)
				r.Patch("/license-keys/{licenseKeyID}", provisioningHandler.UpdateLicenseKeyStatus)
				r.Post("/licenses", provisioningHandler.CreateLicense)
				r.Get("/licenses", provisioningHandler.ListLicenses)
				r.Patch("/licenses/{licenseID}", provisioningHandler.UpdateLicenseStatus)
			})
		})
	})

	// Validation API
	validationHandler := NewValidationHandler(licenseService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(RequireValidationKey(brandService, logger))

		r.Post("/validate", validationHandler.ValidateLicense)
		r.Post("/activate", validationHandler.ActivateLicense)
		r.Get("/licenses/{licenseKey}", validationHandler.ListLicenses)
	})

	return r
}
