package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/review"
)

var (
	pullsJSON   bool
	pullsLabels string
	pullsUser   string
)

var pullsCmd = &cobra.Command{
	Use:   "pulls",
	Short: "List open lyric submissions awaiting review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, client, err := loadClient(ctx)
		if err != nil {
			return err
		}

		items, err := client.ListPullRequests(ctx, cfg.GitHub.RepoOwner, cfg.GitHub.RepoName)
		if err != nil {
			return fmt.Errorf("failed to list pull requests: %w", err)
		}

		opts := review.FilterOptions{SelectedUser: pullsUser}
		if pullsLabels != "" {
			opts.SelectedLabels = strings.Split(pullsLabels, ",")
		}
		filtered := review.FilterPullRequests(items, opts)

		if pullsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(filtered)
		}

		if len(filtered) == 0 {
			dimColor.Println("No open submissions match the filters.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PR\tTITLE\tAUTHOR\tLABELS\tUPDATED")
		for _, pr := range filtered {
			fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\n",
				pr.Number,
				pr.Title,
				pr.Author,
				labelNames(pr.Labels),
				pr.UpdatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func labelNames(labels []core.ReviewLabel) string {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.Name)
	}
	return strings.Join(names, ",")
}

func init() { //nolint:gochecknoinits // Cobra command registration
	pullsCmd.Flags().BoolVar(&pullsJSON, "json", false, "Output as JSON")
	pullsCmd.Flags().StringVar(&pullsLabels, "labels", "", "Comma-separated labels to keep")
	pullsCmd.Flags().StringVar(&pullsUser, "user", "", "Only submissions mentioning this user")
	rootCmd.AddCommand(pullsCmd)
}
