package services

import (
	"errors"

	"github.com/intelvis/intelvis/pkg/utils"
)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidPassword    = errors.New("password must be between 8 and 72 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUserNotFound       = errors.New("user not found")

	ErrInvalidMAC     = utils.ErrInvalidMAC
	ErrInvalidAlias   = errors.New("alias must be between 1 and 50 characters")
	ErrNICNotFound    = errors.New("no device with this MAC address")
	ErrDeviceNotFound = errors.New("device not found")
	ErrAlreadyClaimed = errors.New("device has already been claimed")
	ErrNotOwner       = errors.New("device belongs to another user")
)
