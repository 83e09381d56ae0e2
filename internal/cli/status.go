package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/store"
	"github.com/spf13/cobra"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the items remembered for each source",
	RunE:  statusAction,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "list every remembered item")
}

func statusAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := cmdContext(cmd)
	for _, sc := range cfg.Sources {
		items, err := st.Load(ctx, sc.State)
		if err != nil {
			fmt.Printf("%s %s: %v\n", sc.Icon, sc.Label, err)
			continue
		}

		updated := "never saved"
		if at, err := st.UpdatedAt(ctx, sc.State); err == nil && !at.IsZero() {
			updated = "updated " + humanize.Time(at)
		}
		fmt.Printf("%s %s: %d %s tracked (%s)\n", sc.Icon, sc.Label, len(items), sc.Noun, updated)

		if statusVerbose {
			for i, it := range items {
				fmt.Printf("  %d. %s\n     %s\n", i+1, it.Title, it.URL)
			}
		}
	}
	return nil
}
