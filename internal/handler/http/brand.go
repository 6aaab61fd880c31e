package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keymint/licensing/internal/domain"
	"github.com/keymint/licensing/internal/service"
	"github.com/keymint/licensing/pkg/httputil"
	"github.com/keymint/licensing/pkg/validator"
)

// BrandHandler handles the unauthenticated bootstrap endpoints: brand
// registration and brand lookup.
type BrandHandler struct {
	service *service.BrandService
	logger  *slog.Logger
}

// NewBrandHandler creates a new brand HTTP handler.
func NewBrandHandler(svc *service.BrandService, logger *slog.Logger) *BrandHandler {
	return &BrandHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterBrandRequest is the JSON request body for registering a brand.
type RegisterBrandRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Slug string `json:"slug" validate:"omitempty,min=1,max=255"`
}

// registeredBrandResponse carries the API keys exactly once, on the
// registration response. Brand itself never serializes them.
type registeredBrandResponse struct {
	*domain.Brand
	ProvisioningKey string `json:"provisioning_key"`
	ValidationKey   string `json:"validation_key"`
}

// RegisterBrand handles POST /api/v1/brands
func (h *BrandHandler) RegisterBrand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RegisterBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	brand, err := h.service.RegisterBrand(r.Context(), &service.RegisterBrandInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: registeredBrandResponse{
		Brand:           brand,
		ProvisioningKey: brand.ProvisioningKey,
		ValidationKey:   brand.ValidationKey,
	}})
}

// GetBrand handles GET /api/v1/brands/{brandID}
func (h *BrandHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "brandID"))
	if !ok {
		return
	}

	brand, err := h.service.GetBrand(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: brand})
}
