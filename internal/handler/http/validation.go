package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keymint/licensing/internal/service"
	"github.com/keymint/licensing/pkg/httputil"
)

// ValidationHandler handles the product-facing surface: installations phoning
// home to validate, activate, and enumerate licenses. Routes are
// authenticated with the brand's validation key.
type ValidationHandler struct {
	licenses *service.LicenseService
	logger   *slog.Logger
}

// NewValidationHandler creates a new validation HTTP handler.
func NewValidationHandler(licenses *service.LicenseService, logger *slog.Logger) *ValidationHandler {
	return &ValidationHandler{
		licenses: licenses,
		logger:   logger,
	}
}

// ValidateLicenseRequest is the JSON request body for validate and activate.
type ValidateLicenseRequest struct {
	LicenseKey string `json:"license_key" validate:"required"`
	ProductID  string `json:"product_id" validate:"required,uuid"`
}

// ValidateLicense handles POST /api/v1/products/validate
// A missing, mismatched, or currently invalid license yields 404 with
// valid=false; the response never says which condition failed.
func (h *ValidationHandler) ValidateLicense(w http.ResponseWriter, r *http.Request) {
	var req ValidateLicenseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.licenses.ValidateLicense(r.Context(), req.LicenseKey, req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if view == nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{Data: map[string]any{"valid": false}})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"valid":   true,
		"license": view,
	}})
}

// ActivateLicense handles POST /api/v1/products/activate
// Validates first, then records the activation. A second activation of the
// same license is a 409 conflict.
func (h *ValidationHandler) ActivateLicense(w http.ResponseWriter, r *http.Request) {
	var req ValidateLicenseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.licenses.ValidateLicense(r.Context(), req.LicenseKey, req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if view == nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{Data: map[string]any{"valid": false}})
		return
	}

	license, err := h.licenses.ActivateLicense(r.Context(), view.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"valid":   true,
		"license": license,
	}})
}

// ListLicenses handles GET /api/v1/products/licenses/{licenseKey}
func (h *ValidationHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	keyString := chi.URLParam(r, "licenseKey")

	views, err := h.licenses.GetLicensesByKeyString(r.Context(), keyString)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: views})
}
