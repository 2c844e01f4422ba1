package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/lyric-warden/internal/wire"
)

var draftsJSON bool

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Shows the review report drafts accumulated by Lyric-Warden",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		drafts, err := app.Store.ListDrafts(ctx)
		if err != nil {
			return fmt.Errorf("failed to retrieve drafts: %w", err)
		}

		if draftsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(drafts)
		}

		if len(drafts) == 0 {
			slog.Info("No report drafts are currently stored.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PR\tTITLE\tREPORT SIZE\tLAST UPDATED")
		for _, draft := range drafts {
			fmt.Fprintf(w, "#%d\t%s\t%d\t%s\n",
				draft.PRNumber,
				draft.PRTitle,
				len(draft.Report),
				draft.UpdatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	draftsCmd.Flags().BoolVar(&draftsJSON, "json", false, "Output drafts as JSON")
	rootCmd.AddCommand(draftsCmd)
}
