package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intelvis/intelvis/internal/agent"
	"github.com/intelvis/intelvis/internal/logger"
	"github.com/intelvis/intelvis/pkg/utils"
	"github.com/intelvis/intelvis/pkg/version"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appName = "intelvis-agent"

var (
	serverURL string
	apiKey    string
	macFlag   string
	interval  time.Duration
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "IntelVis device agent - provisions this machine and keeps it online",
	Long:  "Registers this machine's MAC address with the IntelVis server, then sends a liveness ping on a fixed interval",
	RunE:  runAgent,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion(appName))
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.Flags().StringVar(&serverURL, "server", envOr("INTELVIS_SERVER_URL", "http://localhost:8080"), "Server base URL")
	rootCmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("PROVISIONING_API_KEY"), "Provisioning API key")
	rootCmd.Flags().StringVar(&macFlag, "mac", "", "MAC address to report (default: first active interface)")
	rootCmd.Flags().DurationVar(&interval, "interval", 60*time.Second, "Ping interval")
	rootCmd.Flags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel, "console")

	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	mac := macFlag
	if mac == "" {
		detected, err := utils.PrimaryMAC()
		if err != nil {
			return fmt.Errorf("failed to detect MAC address: %w", err)
		}
		mac = detected
	}
	normalized, err := utils.NormalizeMAC(mac)
	if err != nil {
		return fmt.Errorf("invalid MAC address %q: %w", mac, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := agent.NewClient(serverURL, apiKey)
	if err := client.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Str("server", serverURL).Msg("server not reachable yet")
	}

	return agent.Run(ctx, client, agent.Config{MAC: normalized, Interval: interval})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
