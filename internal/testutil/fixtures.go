package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/intelvis/intelvis/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of users made by CreateTestUser
const TestPassword = "password123"

// CreateTestUser creates a user whose password is TestPassword
func (tdb *TestDB) CreateTestUser(ctx context.Context, email string) *models.User {
	tdb.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		tdb.t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	tdb.Exec(ctx, `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt)

	return user
}

// ProvisionTestDevice provisions mac (already canonical) and returns the device
func (tdb *TestDB) ProvisionTestDevice(ctx context.Context, mac string, now time.Time) *models.Device {
	tdb.t.Helper()

	device, _, err := tdb.Repositories().Devices.Provision(ctx, mac, now)
	if err != nil {
		tdb.t.Fatalf("Failed to provision test device: %v", err)
	}
	return device
}

// CreateOrphanNIC inserts a NIC row with no device behind it
func (tdb *TestDB) CreateOrphanNIC(ctx context.Context, mac string) uuid.UUID {
	tdb.t.Helper()

	id := uuid.New()
	tdb.Exec(ctx, `INSERT INTO network_interfaces (id, mac, device_id, added_at) VALUES (?, ?, ?, ?)`,
		id, mac, nil, time.Now().UTC())
	return id
}
