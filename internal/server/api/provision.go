package api

import (
	"net/http"

	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/rs/zerolog/hlog"
)

type ProvisionHandler struct {
	deviceService *services.DeviceService
	metrics       *metrics.Metrics
}

func NewProvisionHandler(deviceService *services.DeviceService, m *metrics.Metrics) *ProvisionHandler {
	return &ProvisionHandler{
		deviceService: deviceService,
		metrics:       m,
	}
}

// Provision registers a device by MAC. 201 when created, 200 when the MAC
// was already known; both carry the device id.
func (h *ProvisionHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req models.ProvisionRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.Provision(metrics.ResultInvalid)
		return
	}

	device, created, err := h.deviceService.Provision(r.Context(), req.MAC)
	if err != nil {
		h.metrics.Provision(metrics.ResultError)
		respondServiceError(w, r, err)
		return
	}

	logger := hlog.FromRequest(r).With().
		Str("device_id", device.ID.String()).
		Str("mac", req.MAC).
		Logger()

	if !created {
		h.metrics.Provision(metrics.ResultExisting)
		logger.Info().Msg("device already provisioned")
		respondJSON(w, http.StatusOK, models.ProvisionResponse{
			Message:  "Device already provisioned",
			DeviceID: device.ID.String(),
		})
		return
	}

	h.metrics.Provision(metrics.ResultCreated)
	logger.Info().Msg("provisioned new device")
	respondJSON(w, http.StatusCreated, models.ProvisionResponse{
		Message:  "Device provisioned successfully",
		DeviceID: device.ID.String(),
	})
}
