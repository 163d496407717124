package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/pkg/models"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
	metrics       *metrics.Metrics
}

func NewDeviceHandler(deviceService *services.DeviceService, m *metrics.Metrics) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		metrics:       m,
	}
}

func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r)
	if user == nil {
		respondErrorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	devices, err := h.deviceService.List(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) ClaimDevice(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r)
	if user == nil {
		respondErrorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.ClaimDeviceRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.Claim(metrics.ResultInvalid)
		return
	}

	device, err := h.deviceService.Claim(r.Context(), user, req.MAC)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNICNotFound):
			h.metrics.Claim(metrics.ResultNotFound)
		case errors.Is(err, services.ErrAlreadyClaimed):
			h.metrics.Claim(metrics.ResultConflict)
		default:
			h.metrics.Claim(metrics.ResultError)
		}
		respondServiceError(w, r, err)
		return
	}
	h.metrics.Claim(metrics.ResultOK)

	respondJSON(w, http.StatusCreated, h.deviceService.ToResponse(device))
}

func (h *DeviceHandler) RenameDevice(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r)
	if user == nil {
		respondErrorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	deviceID, err := uuid.Parse(chi.URLParam(r, "device_id"))
	if err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid device ID")
		return
	}

	var req models.RenameDeviceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	device, err := h.deviceService.Rename(r.Context(), user.ID, deviceID, req.Alias)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.deviceService.ToResponse(device))
}

// Ping is called by devices, not users, to mark themselves alive.
func (h *DeviceHandler) Ping(w http.ResponseWriter, r *http.Request) {
	var req models.PingRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.Ping(metrics.SourceHTTP, metrics.ResultInvalid)
		return
	}

	device, err := h.deviceService.Ping(r.Context(), req.MAC)
	if err != nil {
		if errors.Is(err, services.ErrNICNotFound) {
			h.metrics.Ping(metrics.SourceHTTP, metrics.ResultNotFound)
		} else {
			h.metrics.Ping(metrics.SourceHTTP, metrics.ResultError)
		}
		respondServiceError(w, r, err)
		return
	}
	h.metrics.Ping(metrics.SourceHTTP, metrics.ResultOK)

	respondJSON(w, http.StatusOK, models.PingResponse{
		Status:   device.Status,
		DeviceID: device.ID.String(),
	})
}
