package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/jmoiron/sqlx"
)

const selectDevices = `
	SELECT d.id, d.alias, d.status, d.owner_id, d.parent_id, d.updated_at, d.created_at, n.mac
	FROM devices d
	LEFT JOIN network_interfaces n ON n.device_id = d.id
`

type DeviceRepository struct {
	db *DB
}

func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Provision makes sure a NIC with the given MAC exists and is linked to a
// device. The bool reports whether anything was created. Two concurrent calls
// for the same MAC both succeed and return the same device.
func (r *DeviceRepository) Provision(ctx context.Context, mac string, now time.Time) (*models.Device, bool, error) {
	var device *models.Device
	created := false

	err := r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		nic, err := getNICByMAC(ctx, tx, mac)
		if err != nil {
			return err
		}

		if nic != nil && nic.DeviceID != nil {
			device, err = getDevice(ctx, tx, *nic.DeviceID)
			return err
		}

		d := newDevice(now, nil)
		if err := insertDevice(ctx, tx, d); err != nil {
			return err
		}

		if nic == nil {
			err = insertNIC(ctx, tx, mac, d.ID, now)
		} else {
			err = linkNIC(ctx, tx, nic.ID, d.ID)
		}
		if err != nil {
			return err
		}

		d.MAC = &mac
		device = d
		created = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrConflict) {
			return nil, false, err
		}
		// Lost the insert race to another provisioning call.
		existing, getErr := r.GetByMAC(ctx, mac)
		if getErr != nil {
			return nil, false, getErr
		}
		if existing == nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return device, created, nil
}

// Claim sets the owner of the device behind mac. The ownership check and the
// update are one conditional statement, so of two concurrent claims exactly
// one succeeds and the other gets ErrAlreadyClaimed.
func (r *DeviceRepository) Claim(ctx context.Context, mac string, ownerID uuid.UUID, now time.Time) (*models.Device, error) {
	var device *models.Device

	err := r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		nic, err := getNICByMAC(ctx, tx, mac)
		if err != nil {
			return err
		}
		if nic == nil {
			return ErrNotFound
		}

		if nic.DeviceID == nil {
			// NIC row without a device: create the device already owned.
			d := newDevice(now, &ownerID)
			if err := insertDevice(ctx, tx, d); err != nil {
				return err
			}
			if err := linkNIC(ctx, tx, nic.ID, d.ID); err != nil {
				return err
			}
			d.MAC = &nic.MAC
			device = d
			return nil
		}

		query := tx.Rebind(`UPDATE devices SET owner_id = ? WHERE id = ? AND owner_id IS NULL`)
		result, err := tx.ExecContext(ctx, query, ownerID, *nic.DeviceID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyClaimed
		}

		device, err = getDevice(ctx, tx, *nic.DeviceID)
		return err
	})
	if err != nil {
		// A NIC linked concurrently by another claim surfaces as a unique violation.
		if errors.Is(err, ErrConflict) {
			return nil, ErrAlreadyClaimed
		}
		return nil, err
	}

	return device, nil
}

// Touch records a liveness ping: bumps updated_at and marks the device ACTIVE.
func (r *DeviceRepository) Touch(ctx context.Context, mac string, now time.Time) (*models.Device, error) {
	var device *models.Device

	err := r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		nic, err := getNICByMAC(ctx, tx, mac)
		if err != nil {
			return err
		}
		if nic == nil || nic.DeviceID == nil {
			return ErrNotFound
		}

		query := tx.Rebind(`UPDATE devices SET updated_at = ?, status = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, query, now, models.DeviceStatusActive, *nic.DeviceID); err != nil {
			return err
		}

		device, err = getDevice(ctx, tx, *nic.DeviceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	var device models.Device
	err := r.db.GetContext(ctx, &device, r.db.Rebind(selectDevices+` WHERE d.id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) GetByMAC(ctx context.Context, mac string) (*models.Device, error) {
	var device models.Device
	err := r.db.GetContext(ctx, &device, r.db.Rebind(selectDevices+` WHERE n.mac = ?`), mac)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Device, error) {
	devices := []models.Device{}
	query := r.db.Rebind(selectDevices + ` WHERE d.owner_id = ? ORDER BY d.created_at DESC`)
	err := r.db.SelectContext(ctx, &devices, query, ownerID)
	return devices, err
}

func (r *DeviceRepository) ListAll(ctx context.Context) ([]models.Device, error) {
	devices := []models.Device{}
	err := r.db.SelectContext(ctx, &devices, selectDevices+` ORDER BY d.created_at DESC`)
	return devices, err
}

// UpdateAlias sets the alias. It does not touch updated_at, which tracks liveness only.
func (r *DeviceRepository) UpdateAlias(ctx context.Context, id uuid.UUID, alias string) (*models.Device, error) {
	query := r.db.Rebind(`UPDATE devices SET alias = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, alias, id)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func newDevice(now time.Time, ownerID *uuid.UUID) *models.Device {
	return &models.Device{
		ID:        uuid.New(),
		Status:    models.DeviceStatusInactive,
		OwnerID:   ownerID,
		UpdatedAt: now,
		CreatedAt: now,
	}
}

func getNICByMAC(ctx context.Context, tx *sqlx.Tx, mac string) (*models.NetworkInterface, error) {
	var nic models.NetworkInterface
	query := tx.Rebind(`SELECT id, mac, device_id, added_at FROM network_interfaces WHERE mac = ?`)
	err := tx.GetContext(ctx, &nic, query, mac)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &nic, nil
}

func getDevice(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Device, error) {
	var device models.Device
	if err := tx.GetContext(ctx, &device, tx.Rebind(selectDevices+` WHERE d.id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

func insertDevice(ctx context.Context, tx *sqlx.Tx, d *models.Device) error {
	query := tx.Rebind(`
		INSERT INTO devices (id, alias, status, owner_id, parent_id, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := tx.ExecContext(ctx, query, d.ID, d.Alias, d.Status, d.OwnerID, d.ParentID, d.UpdatedAt, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert device: %w", mapWriteErr(err))
	}
	return nil
}

func insertNIC(ctx context.Context, tx *sqlx.Tx, mac string, deviceID uuid.UUID, now time.Time) error {
	query := tx.Rebind(`INSERT INTO network_interfaces (id, mac, device_id, added_at) VALUES (?, ?, ?, ?)`)
	_, err := tx.ExecContext(ctx, query, uuid.New(), mac, deviceID, now)
	if err != nil {
		return fmt.Errorf("insert network interface: %w", mapWriteErr(err))
	}
	return nil
}

func linkNIC(ctx context.Context, tx *sqlx.Tx, nicID, deviceID uuid.UUID) error {
	query := tx.Rebind(`UPDATE network_interfaces SET device_id = ? WHERE id = ? AND device_id IS NULL`)
	result, err := tx.ExecContext(ctx, query, deviceID, nicID)
	if err != nil {
		return fmt.Errorf("link network interface: %w", mapWriteErr(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

func mapWriteErr(err error) error {
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}
