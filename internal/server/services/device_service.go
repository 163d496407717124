package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/intelvis/intelvis/internal/server/storage"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/intelvis/intelvis/pkg/utils"
	"github.com/rs/zerolog/log"
)

type DeviceService struct {
	deviceRepo   *storage.DeviceRepository
	userRepo     *storage.UserRepository
	emailService *EmailService
	onlineWindow time.Duration
	now          func() time.Time
}

func NewDeviceService(
	deviceRepo *storage.DeviceRepository,
	userRepo *storage.UserRepository,
	emailService *EmailService,
	onlineWindow time.Duration,
) *DeviceService {
	return &DeviceService{
		deviceRepo:   deviceRepo,
		userRepo:     userRepo,
		emailService: emailService,
		onlineWindow: onlineWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for timestamps and connectivity.
func (s *DeviceService) WithClock(now func() time.Time) *DeviceService {
	s.now = now
	return s
}

// Provision registers a MAC as an unclaimed device. Repeated calls return the
// same device with created=false.
func (s *DeviceService) Provision(ctx context.Context, rawMAC string) (*models.Device, bool, error) {
	mac, err := utils.NormalizeMAC(rawMAC)
	if err != nil {
		return nil, false, ErrInvalidMAC
	}

	device, created, err := s.deviceRepo.Provision(ctx, mac, s.now())
	if err != nil {
		return nil, false, fmt.Errorf("failed to provision %s: %w", mac, err)
	}
	return device, created, nil
}

// Claim makes userID the owner of the device behind rawMAC.
func (s *DeviceService) Claim(ctx context.Context, user *models.User, rawMAC string) (*models.Device, error) {
	mac, err := utils.NormalizeMAC(rawMAC)
	if err != nil {
		return nil, ErrInvalidMAC
	}

	device, err := s.deviceRepo.Claim(ctx, mac, user.ID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrNICNotFound
		case errors.Is(err, storage.ErrAlreadyClaimed):
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim device: %w", err)
	}

	go func(email string) {
		if err := s.emailService.SendDeviceClaimedEmail(email, mac); err != nil {
			log.Warn().Err(err).Str("device_id", device.ID.String()).Msg("failed to send claim notification")
		}
	}(user.Email)

	return device, nil
}

// List returns the user's devices with connectivity derived at call time.
func (s *DeviceService) List(ctx context.Context, userID uuid.UUID) ([]models.DeviceResponse, error) {
	devices, err := s.deviceRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return s.ToResponses(devices), nil
}

// ListAll returns every device, or only those of ownerEmail when it is set.
func (s *DeviceService) ListAll(ctx context.Context, ownerEmail string) ([]models.DeviceResponse, error) {
	var (
		devices []models.Device
		err     error
	)
	if ownerEmail != "" {
		owner, getErr := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(ownerEmail))
		if getErr != nil {
			return nil, fmt.Errorf("failed to get user: %w", getErr)
		}
		if owner == nil {
			return nil, ErrUserNotFound
		}
		devices, err = s.deviceRepo.ListByOwner(ctx, owner.ID)
	} else {
		devices, err = s.deviceRepo.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return s.ToResponses(devices), nil
}

// Rename sets the alias of a device owned by userID.
func (s *DeviceService) Rename(ctx context.Context, userID, deviceID uuid.UUID, alias string) (*models.Device, error) {
	alias = strings.TrimSpace(alias)
	if !utils.IsValidAlias(alias) {
		return nil, ErrInvalidAlias
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	if device.OwnerID == nil || *device.OwnerID != userID {
		return nil, ErrNotOwner
	}

	updated, err := s.deviceRepo.UpdateAlias(ctx, deviceID, alias)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to rename device: %w", err)
	}
	return updated, nil
}

// Ping records that the device behind rawMAC is alive.
func (s *DeviceService) Ping(ctx context.Context, rawMAC string) (*models.Device, error) {
	mac, err := utils.NormalizeMAC(rawMAC)
	if err != nil {
		return nil, ErrInvalidMAC
	}

	device, err := s.deviceRepo.Touch(ctx, mac, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNICNotFound
		}
		return nil, fmt.Errorf("failed to record ping: %w", err)
	}
	return device, nil
}

func (s *DeviceService) ToResponse(device *models.Device) models.DeviceResponse {
	resp := models.DeviceResponse{
		ID:           device.ID.String(),
		Alias:        device.Alias,
		Status:       device.Status,
		Connectivity: device.Connectivity(s.now(), s.onlineWindow),
		UpdatedAt:    device.UpdatedAt,
		CreatedAt:    device.CreatedAt,
	}
	if device.MAC != nil {
		resp.NIC = &models.NICResponse{MAC: *device.MAC}
	}
	return resp
}

func (s *DeviceService) ToResponses(devices []models.Device) []models.DeviceResponse {
	out := make([]models.DeviceResponse, 0, len(devices))
	for i := range devices {
		out = append(out, s.ToResponse(&devices[i]))
	}
	return out
}
