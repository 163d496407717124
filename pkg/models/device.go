package models

import (
	"time"

	"github.com/google/uuid"
)

// Device status values persisted in devices.status
const (
	DeviceStatusActive   = "ACTIVE"
	DeviceStatusInactive = "INACTIVE"
)

// Connectivity values derived from UpdatedAt, never stored
const (
	ConnectivityOnline  = "ONLINE"
	ConnectivityOffline = "OFFLINE"
)

type Device struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	Alias    *string    `json:"alias" db:"alias"`
	Status   string     `json:"status" db:"status"`
	OwnerID  *uuid.UUID `json:"ownerId" db:"owner_id"`
	ParentID *uuid.UUID `json:"parentId" db:"parent_id"`

	// UpdatedAt is bumped by provisioning and liveness pings only.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// MAC of the linked NIC, filled by joined queries
	MAC *string `json:"-" db:"mac"`
}

// IsClaimed reports whether the device has an owner.
func (d *Device) IsClaimed() bool {
	return d.OwnerID != nil
}

// Connectivity derives ONLINE/OFFLINE from the last update and the online window.
func (d *Device) Connectivity(now time.Time, window time.Duration) string {
	if now.Sub(d.UpdatedAt) <= window {
		return ConnectivityOnline
	}
	return ConnectivityOffline
}

// NetworkInterface is the physical MAC a device presents to the backend.
type NetworkInterface struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	MAC      string     `json:"mac" db:"mac"`
	DeviceID *uuid.UUID `json:"deviceId" db:"device_id"`
	AddedAt  time.Time  `json:"addedAt" db:"added_at"`
}
