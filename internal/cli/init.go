package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config.yaml",
	RunE:  initAction,
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}

	if wrote {
		fmt.Printf("Initialized %s.\n", configDir)
	} else {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# newswatch configuration
# Every key is optional; omitted keys fall back to the built-in defaults.

sources:
  - name: etf
    label: ETF
    icon: "🎓"
    noun: announcements
    heading: Announcements
    kind: containers
    url: https://www.etf.unsa.ba/obavjestenja
    base_url: https://www.etf.unsa.ba
    selectors:
      - "div.mb-3.bg-light.p-3"
      - "div.mb-3, div.bg-light, div.p-3"
      - "div[class*='mb-3'], div[class*='bg-light']"
    link_selector: "a[href]"
    limit: 7
    state: etf_posts.json

  - name: dsai
    label: DSAI
    icon: "🤖"
    noun: news items
    heading: News
    kind: links
    url: https://dsai.etf.unsa.ba/news/
    base_url: https://dsai.etf.unsa.ba
    selectors:
      - "a.ee-post-title-link"
    limit: 3
    state: dsai_posts.json

fetch:
  timeout: 10s

storage:
  driver: json        # json, sqlite, or redis
  dir: .
  max_items: 20
  keep_items: 10
  # path: newswatch.db
  # redis:
  #   addr: localhost:6379
  #   password_env: REDIS_PASSWORD

notify:
  channel: telegram   # telegram or discord
  telegram:
    bot_token_env: TELEGRAM_BOT_TOKEN
    chat_id_env: TELEGRAM_CHAT_ID
  discord:
    webhook_url_env: DISCORD_WEBHOOK_URL
  timezone: Local
  summary_hour: 12    # -1 disables the daily summary
  snapshot_dates: []

log:
  level: info
  format: auto        # auto, text, or json
`
