package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/source"
	"github.com/etfnews/newswatch/internal/store"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, credentials, storage, and every source",
	RunE:  doctorAction,
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfgPath := filepath.Join(configDir, config.DefaultConfigFile)
	if _, err := os.Stat(cfgPath); err != nil {
		printInfo("%s not found, using built-in sources", cfgPath)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config (%d sources, %s channel, %s storage)",
		len(cfg.Sources), cfg.Notify.Channel, cfg.Storage.Driver)

	// Store
	st, err := store.Open(cfg.Storage)
	if err != nil {
		printCheck(false, "store: %v", err)
		ok = false
	} else {
		defer func() { _ = st.Close() }()
		printCheck(true, "store (%s)", cfg.Storage.Driver)
	}

	// Sources
	sources, err := source.FromConfig(cfg)
	if err != nil {
		printCheck(false, "sources: %v", err)
		return fmt.Errorf("some checks failed")
	}
	ctx := cmdContext(cmd)
	for _, src := range sources {
		if !checkSource(ctx, src, cfg.Fetch.Timeout.Duration) {
			ok = false
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

// checkSource does a live fetch and extract of one source.
func checkSource(ctx context.Context, src *source.Source, timeout time.Duration) bool {
	info := src.Info()
	ctx, cancel := context.WithTimeout(ctx, 2*timeout)
	defer cancel()

	items, err := src.Collect(ctx)
	switch {
	case err != nil:
		printCheck(false, "%s %s: %v", info.Icon, info.URL, err)
		return false
	case len(items) == 0:
		printCheck(false, "%s %s: page fetched but no items matched the selectors", info.Icon, info.URL)
		return false
	default:
		printCheck(true, "%s %s: %d items, first %q", info.Icon, info.URL, len(items), items[0].Title)
		return true
	}
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
