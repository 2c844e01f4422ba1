package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/lyric-warden/internal/config"
	"github.com/sevigo/lyric-warden/internal/github"
	"github.com/sevigo/lyric-warden/internal/logger"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check whether the configured token may review the lyric repository",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, client, err := loadClient(ctx)
		if err != nil {
			return err
		}

		titleColor.Printf("Verifying access to %s/%s\n", cfg.GitHub.RepoOwner, cfg.GitHub.RepoName)
		result := github.VerifyAccess(ctx, client, cfg.GitHub.Token, cfg.GitHub.RepoOwner, cfg.GitHub.RepoName)

		switch result.Status {
		case github.IdentityAuthorized:
			successColor.Printf("✓ %s is authorized to review\n", result.Login)
			for _, label := range result.Labels {
				dimColor.Printf("  label: %s\n", label.Name)
			}
		case github.IdentityUnauthorized:
			warnColor.Printf("✗ %s is not a collaborator of the repository\n", result.Login)
		case github.IdentityMissingToken:
			errorColor.Println("✗ no GitHub token configured (set GITHUB_TOKEN or --github-token)")
		default:
			errorColor.Println("✗ could not verify identity")
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(verifyCmd)
}

// loadClient builds the service configuration and a GitHub client for
// standalone CLI commands. The --github-token flag overrides the environment.
func loadClient(ctx context.Context) (*config.Config, github.Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if token := viper.GetString("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}

	log := logger.NewLogger(cfg.Logging, cmdLogWriter())
	client, err := github.NewClientFromConfig(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return cfg, client, nil
}
