package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/internal/service"
	apperrors "github.com/keymint/licensing/pkg/errors"
	"github.com/keymint/licensing/pkg/httputil"
	"github.com/keymint/licensing/pkg/validator"
)

// ProvisioningHandler handles the brand-scoped write surface: products,
// license keys, and licenses. All routes are authenticated with the brand's
// provisioning key and ownership-checked against the {brandID} path segment.
type ProvisioningHandler struct {
	brands   *service.BrandService
	keys     *service.LicenseKeyService
	licenses *service.LicenseService
	logger   *slog.Logger
}

// NewProvisioningHandler creates a new provisioning HTTP handler.
func NewProvisioningHandler(brands *service.BrandService, keys *service.LicenseKeyService, licenses *service.LicenseService, logger *slog.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{
		brands:   brands,
		keys:     keys,
		licenses: licenses,
		logger:   logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Slug        string `json:"slug" validate:"omitempty,min=1,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateLicenseKeyRequest is the JSON request body for issuing a license key.
type CreateLicenseKeyRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

// UpdateLicenseKeyStatusRequest is the JSON request body for a license-key
// status change.
type UpdateLicenseKeyStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive cancelled"`
}

// CreateLicenseRequest is the JSON request body for creating a license.
type CreateLicenseRequest struct {
	LicenseKeyID string    `json:"license_key_id" validate:"required,uuid"`
	ProductID    string    `json:"product_id" validate:"required,uuid"`
	StartsAt     time.Time `json:"starts_at"`
	ExpiresAt    time.Time `json:"expires_at" validate:"required"`
	SeatLimit    *int      `json:"seat_limit" validate:"omitempty,gt=0"`
}

// UpdateLicenseStatusRequest is the JSON request body for a license status
// change.
type UpdateLicenseStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=valid suspended cancelled"`
}

// licenseKeyWithLicensesResponse is a license key with its denormalized
// license views attached.
type licenseKeyWithLicensesResponse struct {
	*domain.LicenseKey
	Licenses []domain.LicenseView `json:"licenses"`
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}

	return true
}

// --- Products ---

// CreateProduct handles POST /api/v1/brands/{brandID}/products
func (h *ProvisioningHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")

	var req CreateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	product, err := h.brands.CreateProduct(r.Context(), brandID, &service.CreateProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// ListProducts handles GET /api/v1/brands/{brandID}/products
// The optional ?status=active filter narrows the list to active products.
func (h *ProvisioningHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")

	var (
		products []domain.Product
		err      error
	)

	switch status := r.URL.Query().Get("status"); status {
	case "":
		products, err = h.brands.GetBrandProducts(r.Context(), brandID)
	case domain.ProductStatusActive:
		products, err = h.brands.GetActiveBrandProducts(r.Context(), brandID)
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "status must be 'active'"},
		})
		return
	}

	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// --- License keys ---

// CreateLicenseKey handles POST /api/v1/brands/{brandID}/license-keys
func (h *ProvisioningHandler) CreateLicenseKey(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")

	var req CreateLicenseKeyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	key, err := h.keys.CreateLicenseKey(r.Context(), brandID, &service.CreateLicenseKeyInput{
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: key})
}

// GetLicenseKey handles GET /api/v1/brands/{brandID}/license-keys/{licenseKeyID}
// The key is returned together with its licenses. Keys of other brands are
// reported as not found rather than forbidden.
func (h *ProvisioningHandler) GetLicenseKey(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "licenseKeyID"))
	if !ok {
		return
	}

	key, err := h.ownedLicenseKey(w, r, brandID, id.String())
	if key == nil || err != nil {
		return
	}

	licenses, err := h.licenses.GetLicensesByKey(r.Context(), key.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: licenseKeyWithLicensesResponse{
		LicenseKey: key,
		Licenses:   licenses,
	}})
}

// ListLicenseKeys handles GET /api/v1/brands/{brandID}/license-keys
// Filtered by ?customer_email= or looked up by exact key string with ?key=.
// A key belonging to another brand reads as not found.
func (h *ProvisioningHandler) ListLicenseKeys(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")

	if keyString := r.URL.Query().Get("key"); keyString != "" {
		key, err := h.keys.GetLicenseKeyByString(r.Context(), keyString)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if key.BrandID != brandID {
			httputil.WriteError(w, r, apperrors.NotFound("license key", keyString), h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: []domain.LicenseKey{*key}})
		return
	}

	email := r.URL.Query().Get("customer_email")
	if email == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "customer_email or key query parameter is required"},
		})
		return
	}

	keys, err := h.keys.GetLicenseKeysByCustomer(r.Context(), brandID, email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: keys})
}

// UpdateLicenseKeyStatus handles PATCH /api/v1/brands/{brandID}/license-keys/{licenseKeyID}
// The target status selects the transition: active reactivates, inactive
// suspends, cancelled cancels.
func (h *ProvisioningHandler) UpdateLicenseKeyStatus(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "licenseKeyID"))
	if !ok {
		return
	}

	var req UpdateLicenseKeyStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if key, err := h.ownedLicenseKey(w, r, brandID, id.String()); key == nil || err != nil {
		return
	}

	var (
		key *domain.LicenseKey
		err error
	)
	switch req.Status {
	case domain.LicenseKeyStatusActive:
		key, err = h.keys.ReactivateLicenseKey(r.Context(), id.String())
	case domain.LicenseKeyStatusInactive:
		key, err = h.keys.SuspendLicenseKey(r.Context(), id.String())
	case domain.LicenseKeyStatusCancelled:
		key, err = h.keys.CancelLicenseKey(r.Context(), id.String())
	}

	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: key})
}

// --- Licenses ---

// CreateLicense handles POST /api/v1/brands/{brandID}/licenses
func (h *ProvisioningHandler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")

	var req CreateLicenseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if key, err := h.ownedLicenseKey(w, r, brandID, req.LicenseKeyID); key == nil || err != nil {
		return
	}

	license, err := h.licenses.CreateLicense(r.Context(), &service.CreateLicenseInput{
		LicenseKeyID: req.LicenseKeyID,
		ProductID:    req.ProductID,
		StartsAt:     req.StartsAt,
		ExpiresAt:    req.ExpiresAt,
		SeatLimit:    req.SeatLimit,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: license})
}

// ListLicenses handles GET /api/v1/brands/{brandID}/licenses
// Lists the brand's currently enforceable licenses (valid or suspended).
func (h *ProvisioningHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")

	licenses, err := h.licenses.GetValidLicensesByBrand(r.Context(), brandID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: licenses})
}

// UpdateLicenseStatus handles PATCH /api/v1/brands/{brandID}/licenses/{licenseID}
// The target status selects the transition: valid reactivates, suspended
// suspends, cancelled cancels.
func (h *ProvisioningHandler) UpdateLicenseStatus(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "licenseID"))
	if !ok {
		return
	}

	var req UpdateLicenseStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	existing, err := h.licenses.GetLicense(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if key, err := h.ownedLicenseKey(w, r, brandID, existing.LicenseKeyID); key == nil || err != nil {
		return
	}

	var license *domain.License
	switch req.Status {
	case domain.LicenseStatusValid:
		license, err = h.licenses.ReactivateLicense(r.Context(), id.String())
	case domain.LicenseStatusSuspended:
		license, err = h.licenses.SuspendLicense(r.Context(), id.String())
	case domain.LicenseStatusCancelled:
		license, err = h.licenses.CancelLicense(r.Context(), id.String())
	}

	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: license})
}

// ownedLicenseKey loads a license key and verifies it belongs to the brand in
// the request path. Cross-brand keys surface as not found to avoid leaking
// their existence. On any failure the response has already been written and
// nil is returned.
func (h *ProvisioningHandler) ownedLicenseKey(w http.ResponseWriter, r *http.Request, brandID, keyID string) (*domain.LicenseKey, error) {
	key, err := h.keys.GetLicenseKey(r.Context(), keyID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil, err
	}

	if key.BrandID != brandID {
		err := apperrors.NotFound("license key", keyID)
		httputil.WriteError(w, r, err, h.logger)
		return nil, err
	}

	return key, nil
}
