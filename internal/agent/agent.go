package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	MAC      string
	Interval time.Duration
}

// Run provisions the device, then pings every Interval until ctx is done.
// Provisioning is retried every Interval until it succeeds. A ping answered
// with 404 means the server lost the device, so it is provisioned again.
func Run(ctx context.Context, client *Client, cfg Config) error {
	logger := log.With().Str("mac", cfg.MAC).Logger()
	logger.Info().Dur("interval", cfg.Interval).Msg("agent started")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	provisioned := false
	for {
		if !provisioned {
			deviceID, created, err := client.Provision(ctx, cfg.MAC)
			switch {
			case err == nil:
				provisioned = true
				logger.Info().Str("device_id", deviceID).Bool("created", created).Msg("device provisioned")
			case errors.Is(err, ErrUnauthorized):
				return err
			default:
				logger.Warn().Err(err).Msg("provisioning failed, will retry")
			}
		}

		if provisioned {
			err := client.Ping(ctx, cfg.MAC)
			switch {
			case err == nil:
				logger.Debug().Msg("ping sent")
			case errors.Is(err, ErrNotProvisioned):
				logger.Warn().Msg("server does not know this device, provisioning again")
				provisioned = false
			case errors.Is(err, ErrUnauthorized):
				return err
			default:
				logger.Warn().Err(err).Msg("ping failed")
			}
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("agent stopped")
			return nil
		case <-ticker.C:
		}
	}
}
