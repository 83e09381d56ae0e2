package cli

import (
	"fmt"
	"time"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/notify"
	"github.com/spf13/cobra"
)

var pingSchedule string

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a test message through the configured channel",
	RunE:  pingAction,
}

func init() {
	pingCmd.Flags().StringVar(&pingSchedule, "schedule", defaultSchedule, "schedule to mention in the message (empty to omit)")
}

func pingAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ch, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return fmt.Errorf("build channel: %w", err)
	}

	now := time.Now().In(cfg.Location())
	if _, err := notify.Deliver(cmdContext(cmd), ch, notify.Ping(pingSchedule, now)); err != nil {
		return fmt.Errorf("send test message: %w", err)
	}
	fmt.Printf("Test message sent via %s\n", ch.Name())
	return nil
}
