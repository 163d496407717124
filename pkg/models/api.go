package models

import "time"

// Auth API types
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Provisioning API types
type ProvisionRequest struct {
	MAC string `json:"mac" validate:"required,macaddr"`
}

type ProvisionResponse struct {
	Message  string `json:"message"`
	DeviceID string `json:"deviceId"`
}

// Device API types
type ClaimDeviceRequest struct {
	MAC string `json:"mac" validate:"required,macaddr"`
}

type RenameDeviceRequest struct {
	Alias string `json:"alias" validate:"required,alias"`
}

type PingRequest struct {
	MAC string `json:"mac" validate:"required,macaddr"`
}

type NICResponse struct {
	MAC string `json:"mac"`
}

type DeviceResponse struct {
	ID           string       `json:"id"`
	Alias        *string      `json:"alias"`
	Status       string       `json:"status"`
	NIC          *NICResponse `json:"nic"`
	Connectivity string       `json:"connectivity"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type PingResponse struct {
	Status   string `json:"status"`
	DeviceID string `json:"deviceId"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
