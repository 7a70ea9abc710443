package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/shiftd/config"
	"github.com/fleetops/shiftd/infra/platform"
)

var (
	sendDevice  string
	sendPayload string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Inject a one-off command to a device",
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendDevice, "device", "", "device identifier")
	sendCmd.Flags().StringVar(&sendPayload, "payload", "", "opaque command payload")
	_ = sendCmd.MarkFlagRequired("device")
	_ = sendCmd.MarkFlagRequired("payload")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client := platform.NewHTTPClient(cfg.Platform)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.SendCommand(ctx, sendDevice, sendPayload); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	fmt.Println("command executed")
	return nil
}
