package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/internal/server/storage"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/intelvis/intelvis/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
	Long:  "Administrative commands for provisioning devices and inspecting users and devices",
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a device by MAC address (same as POST /api/provision)",
	Run:   runProvisionCommand,
}

var listDevicesCmd = &cobra.Command{
	Use:   "list-devices",
	Short: "List all devices, or the devices of one user",
	Run:   runListDevicesCommand,
}

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List registered users",
	Run:   runListUsersCommand,
}

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Write a QR code PNG with the claim link for a device",
	Run:   runLabelCommand,
}

var genKeyCmd = &cobra.Command{
	Use:   "gen-key",
	Short: "Generate a random value for PROVISIONING_API_KEY or JWT_SECRET",
	Run:   runGenKeyCommand,
}

func init() {
	provisionCmd.Flags().String("mac", "", "Device MAC address (required)")
	provisionCmd.MarkFlagRequired("mac")

	listDevicesCmd.Flags().String("email", "", "Only devices owned by this user")

	labelCmd.Flags().String("mac", "", "Device MAC address (required)")
	labelCmd.Flags().String("out", "", "Output PNG file (default: <mac>.png)")
	labelCmd.Flags().Int("size", 256, "Image size in pixels")
	labelCmd.Flags().String("site-url", "", "Dashboard base URL (default: $SITE_URL)")
	labelCmd.MarkFlagRequired("mac")

	genKeyCmd.Flags().Int("bytes", 32, "Number of random bytes")

	adminCmd.AddCommand(
		provisionCmd,
		listDevicesCmd,
		listUsersCmd,
		labelCmd,
		genKeyCmd,
	)
}

func newAdminServices(ctx context.Context) (*storage.DB, *services.AuthService, *services.DeviceService) {
	cfg := loadConfig()
	db := openStore(ctx, cfg)

	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	userRepo := storage.NewUserRepository(db)
	deviceRepo := storage.NewDeviceRepository(db)
	noMail := services.NewEmailService(config.EmailConfig{Skip: true}, cfg.SiteURL)

	return db,
		services.NewAuthService(userRepo, noMail, cfg),
		services.NewDeviceService(deviceRepo, userRepo, noMail, cfg.OnlineWindow)
}

func runProvisionCommand(cmd *cobra.Command, args []string) {
	mac, _ := cmd.Flags().GetString("mac")
	ctx := context.Background()

	db, _, deviceService := newAdminServices(ctx)
	defer db.Close()

	device, created, err := deviceService.Provision(ctx, mac)
	if err != nil {
		log.Fatal().Err(err).Str("mac", mac).Msg("provisioning failed")
	}

	if created {
		fmt.Printf("Provisioned new device %s\n", device.ID)
	} else {
		fmt.Printf("Device already provisioned: %s\n", device.ID)
	}
}

func runListDevicesCommand(cmd *cobra.Command, args []string) {
	email, _ := cmd.Flags().GetString("email")
	ctx := context.Background()

	db, _, deviceService := newAdminServices(ctx)
	defer db.Close()

	devices, err := deviceService.ListAll(ctx, email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list devices")
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return
	}

	fmt.Printf("Devices (%d):\n", len(devices))
	fmt.Println(strings.Repeat("=", 100))
	fmt.Printf("%-36s %-17s %-20s %-8s %-7s\n", "ID", "MAC", "Alias", "Status", "Online")
	fmt.Println(strings.Repeat("=", 100))

	for _, d := range devices {
		fmt.Printf("%-36s %-17s %-20s %-8s %-7s\n",
			d.ID,
			deviceMAC(d),
			truncateString(deref(d.Alias), 20),
			d.Status,
			d.Connectivity,
		)
	}
	fmt.Println(strings.Repeat("=", 100))
}

func runListUsersCommand(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	db, authService, _ := newAdminServices(ctx)
	defer db.Close()

	users, err := authService.ListUsers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list users")
	}

	if len(users) == 0 {
		fmt.Println("No users registered.")
		return
	}

	fmt.Printf("Users (%d):\n", len(users))
	fmt.Println(strings.Repeat("=", 90))
	fmt.Printf("%-36s %-32s %-20s\n", "ID", "Email", "Created")
	fmt.Println(strings.Repeat("=", 90))
	for _, u := range users {
		fmt.Printf("%-36s %-32s %-20s\n", u.ID, truncateString(u.Email, 32), u.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println(strings.Repeat("=", 90))
}

// runLabelCommand does not need the database: a label can be printed before
// the device ever boots.
func runLabelCommand(cmd *cobra.Command, args []string) {
	rawMAC, _ := cmd.Flags().GetString("mac")
	out, _ := cmd.Flags().GetString("out")
	size, _ := cmd.Flags().GetInt("size")

	mac, err := utils.NormalizeMAC(rawMAC)
	if err != nil {
		log.Fatal().Err(err).Str("mac", rawMAC).Msg("invalid MAC address")
	}
	if out == "" {
		out = strings.ReplaceAll(mac, ":", "") + ".png"
	}

	siteURL, _ := cmd.Flags().GetString("site-url")
	if siteURL == "" {
		_ = godotenv.Load()
		siteURL = os.Getenv(config.EnvSiteURL)
	}
	if siteURL == "" {
		siteURL = config.DefaultSiteURL
	}
	link := claimURL(siteURL, mac)

	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		log.Fatal().Err(err).Str("url", link).Msg("failed to encode QR code")
	}
	if err := utils.WriteFileAsInvoker(out, png, 0o644); err != nil {
		log.Fatal().Err(err).Str("file", out).Msg("failed to write QR code")
	}

	fmt.Printf("Wrote %s (%s)\n", out, link)
}

func runGenKeyCommand(cmd *cobra.Command, args []string) {
	n, _ := cmd.Flags().GetInt("bytes")

	key, err := utils.GenerateSecret(n)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate key")
	}
	fmt.Println(key)
}

func claimURL(siteURL, mac string) string {
	return strings.TrimRight(siteURL, "/") + "/dashboard?claim=" + url.QueryEscape(mac)
}

func deviceMAC(d models.DeviceResponse) string {
	if d.NIC == nil {
		return "-"
	}
	return d.NIC.MAC
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
