// Package config loads the application's configuration from environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/lyric-warden/internal/logger"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string
}

// DBConfig holds the Postgres connection settings. An empty Host disables
// persistence; the application falls back to the in-memory store.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// GitHubConfig holds credentials and the target lyric repository. Either a
// PAT token or a GitHub App (app ID + installation + private key) must be
// configured for the push workflow.
type GitHubConfig struct {
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	RepoOwner      string
	RepoName       string
}

// ReviewConfig holds review-workflow tunables.
type ReviewConfig struct {
	PollInterval    time.Duration
	AutomationLogin string
	DefaultToolMode string
}

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig
	Logging  logger.Config
	Database DBConfig
	GitHub   GitHubConfig
	Review   ReviewConfig
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USERNAME", "lyric_warden")
	viper.SetDefault("DB_DATABASE", "lyric_warden")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	viper.SetDefault("GITHUB_REPO_OWNER", "Steve-xmh")
	viper.SetDefault("GITHUB_REPO_NAME", "amll-ttml-db")
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/lyric-warden-app.private-key.pem")
	viper.SetDefault("REVIEW_POLL_INTERVAL", "20s")
	viper.SetDefault("REVIEW_AUTOMATION_LOGIN", "github-actions")
	viper.SetDefault("REVIEW_DEFAULT_TOOL_MODE", "review")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Viper reports a missing explicit config file as a *fs.PathError,
		// not as ConfigFileNotFoundError. A broken .env is worth failing on;
		// a missing one is not.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if viper.GetString("GITHUB_REPO_OWNER") == "" || viper.GetString("GITHUB_REPO_NAME") == "" {
		return nil, fmt.Errorf("GITHUB_REPO_OWNER and GITHUB_REPO_NAME must be set")
	}

	pollInterval := viper.GetDuration("REVIEW_POLL_INTERVAL")
	if pollInterval <= 0 {
		return nil, fmt.Errorf("REVIEW_POLL_INTERVAL must be positive, got %q", viper.GetString("REVIEW_POLL_INTERVAL"))
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USERNAME"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_DATABASE"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		GitHub: GitHubConfig{
			Token:          viper.GetString("GITHUB_TOKEN"),
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			InstallationID: viper.GetInt64("GITHUB_INSTALLATION_ID"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
			RepoOwner:      viper.GetString("GITHUB_REPO_OWNER"),
			RepoName:       viper.GetString("GITHUB_REPO_NAME"),
		},
		Review: ReviewConfig{
			PollInterval:    pollInterval,
			AutomationLogin: viper.GetString("REVIEW_AUTOMATION_LOGIN"),
			DefaultToolMode: viper.GetString("REVIEW_DEFAULT_TOOL_MODE"),
		},
	}, nil
}
