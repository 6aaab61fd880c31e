package http

import (
	"log/slog"
	"net/http"

	"github.com/keymint/licensing/internal/service"
	"github.com/keymint/licensing/pkg/httputil"
)

// InternalHandler handles operator-only endpoints. These are expected to be
// fenced off from the public listener by the deployment, not by API keys.
type InternalHandler struct {
	licenses *service.LicenseService
	logger   *slog.Logger
}

// NewInternalHandler creates a new internal HTTP handler.
func NewInternalHandler(licenses *service.LicenseService, logger *slog.Logger) *InternalHandler {
	return &InternalHandler{
		licenses: licenses,
		logger:   logger,
	}
}

// SweepExpired handles POST /internal/v1/licenses/sweep-expired
// It runs the same sweep as the background ticker and reports how many
// licenses were force-expired.
func (h *InternalHandler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	count, err := h.licenses.MarkExpiredLicenses(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int64{"expired": count}})
}
