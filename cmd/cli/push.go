package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/logger"
	"github.com/sevigo/lyric-warden/internal/lyric"
	"github.com/sevigo/lyric-warden/internal/push"
)

var pushYes bool

var pushCmd = &cobra.Command{
	Use:   "push [pr-number] [document.json]",
	Short: "Upload a corrected lyric document and trigger the update bot on a PR",
	Long: `Upload a corrected lyric document and trigger the update bot on a PR.

The document is serialized by the PR's lyric file extension, uploaded as a
gist, and announced with an update command comment. The command then watches
the PR until the automation reports an outcome.

Examples:
  warden-cli push 123 song.json
  warden-cli push --yes 123 song.json`,
	Args: cobra.ExactArgs(2),
	RunE: runPush,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	pushCmd.Flags().BoolVarP(&pushYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	prNumber, err := strconv.Atoi(args[0])
	if err != nil || prNumber <= 0 {
		return fmt.Errorf("invalid PR number %q", args[0])
	}

	raw, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	var doc lyric.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	cfg, client, err := loadClient(ctx)
	if err != nil {
		return err
	}

	detail, err := client.GetPullRequest(ctx, cfg.GitHub.RepoOwner, cfg.GitHub.RepoName, prNumber)
	if err != nil {
		return fmt.Errorf("failed to load PR #%d: %w", prNumber, err)
	}
	files, err := client.ListPullRequestFiles(ctx, cfg.GitHub.RepoOwner, cfg.GitHub.RepoName, prNumber)
	if err != nil {
		return fmt.Errorf("failed to list PR files: %w", err)
	}
	fileName := lyricFileName(files)
	if fileName == "" {
		return fmt.Errorf("PR #%d does not change a .ttml lyric file", prNumber)
	}

	done := make(chan error, 1)
	callbacks := push.Callbacks{
		OnAfterPush: func() {
			successColor.Println("✓ lyric uploaded, update command posted")
			titleColor.Println("Waiting for the repository automation...")
		},
		OnSuccess: func() {
			successColor.Printf("✓ PR #%d updated\n", prNumber)
			done <- nil
		},
		OnFailure: func(message, prURL string) {
			errorColor.Printf("✗ automation rejected the update: %s\n", message)
			dimColor.Println(prURL)
			done <- fmt.Errorf("update rejected: %s", message)
		},
		OnError: func(err error) {
			done <- err
		},
	}

	var confirmer push.Confirmer = promptConfirmer{}
	if pushYes {
		confirmer = push.AutoConfirm{}
	}

	log := logger.NewLogger(cfg.Logging, cmdLogWriter())
	orchestrator := push.NewOrchestrator(
		client,
		cfg.GitHub.Token,
		cfg.GitHub.RepoOwner,
		cfg.GitHub.RepoName,
		cfg.Review.AutomationLogin,
		cfg.Review.PollInterval,
		confirmer,
		callbacks,
		log,
	)

	session := core.ReviewSession{
		PRNumber: prNumber,
		PRTitle:  detail.Title,
		FileName: fileName,
		Source:   core.SourceUpdate,
	}
	stop, err := orchestrator.Push(ctx, session, &doc)
	if err != nil {
		return err
	}
	defer stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lyricFileName picks the lyric file among a PR's changed paths.
func lyricFileName(paths []string) string {
	for _, p := range paths {
		if strings.HasSuffix(strings.ToLower(p), ".ttml") {
			return path.Base(p)
		}
	}
	return ""
}

// promptConfirmer asks on the terminal before the push proceeds.
type promptConfirmer struct{}

func (promptConfirmer) Confirm(_ context.Context, title, description string) (bool, error) {
	warnColor.Println(title)
	fmt.Println(description)
	fmt.Print("Proceed? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
