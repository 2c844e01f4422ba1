package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/lyric-warden/internal/lyric"
)

var exportCmd = &cobra.Command{
	Use:   "export [document.json] [output-file]",
	Short: "Serialize an editor document into a lyric format",
	Long: `Serialize an editor document into a lyric format.

The input is the editor's JSON document; the output format is chosen by the
output file's extension (ttml, lrc, eslrc, qrc, yrc, lys).

Examples:
  warden-cli export song.json song.ttml
  warden-cli export song.json song.lrc`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}

		var doc lyric.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to parse document: %w", err)
		}

		content := lyric.Serialize(&doc, args[1])
		if err := os.WriteFile(args[1], []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		successColor.Printf("✓ wrote %s (%d bytes)\n", args[1], len(content))
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(exportCmd)
}
