// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/lyric-warden/internal/core"
)

// PullRequestDetail is the authoritative remote state of a pull request the
// update workflow cares about: its head commit and canonical URL.
type PullRequestDetail struct {
	Number  int
	Title   string
	Body    string
	HeadSHA string
	HTMLURL string
}

// Comment is an issue comment on a pull request's discussion thread.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// GistResult holds the outcome of a gist upload: the gist ID and the raw
// content URL per uploaded file name.
type GistResult struct {
	ID      string
	HTMLURL string
	RawURLs map[string]string
}

// Client defines a set of operations for interacting with the GitHub API,
// focusing on pull requests, comments, gists, and identity checks.
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequestDetail, error)
	ListPullRequests(ctx context.Context, owner, repo string) ([]core.PullRequest, error)
	ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]string, error)
	ListCommentsSince(ctx context.Context, owner, repo string, number int, since time.Time) ([]Comment, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
	CreateGist(ctx context.Context, description string, public bool, files map[string]string) (*GistResult, error)
	GetAuthenticatedUser(ctx context.Context) (string, error)
	IsCollaborator(ctx context.Context, owner, repo, user string) (bool, error)
	ListLabels(ctx context.Context, owner, repo string) ([]core.ReviewLabel, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewPATClient creates a new GitHub client authenticated with a Personal Access Token (PAT).
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	return &gitHubClient{client: client, logger: logger}
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequestDetail, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return &PullRequestDetail{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HeadSHA: pr.GetHead().GetSHA(),
		HTMLURL: pr.GetHTMLURL(),
	}, nil
}

// ListPullRequests retrieves all open pull requests in the lyric repository.
// It handles pagination automatically; the GitHub API returns a maximum of
// 100 items per page.
func (g *gitHubClient) ListPullRequests(ctx context.Context, owner, repo string) ([]core.PullRequest, error) {
	var all []core.PullRequest
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		prs, resp, err := g.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			g.logger.Error("failed to list pull requests", "owner", owner, "repo", repo, "error", err)
			return nil, err
		}
		for _, pr := range prs {
			labels := make([]core.ReviewLabel, 0, len(pr.Labels))
			for _, label := range pr.Labels {
				labels = append(labels, core.ReviewLabel{
					Name:  label.GetName(),
					Color: label.GetColor(),
				})
			}
			all = append(all, core.PullRequest{
				Number:    pr.GetNumber(),
				Title:     pr.GetTitle(),
				Body:      pr.GetBody(),
				Author:    pr.GetUser().GetLogin(),
				Labels:    labels,
				HeadSHA:   pr.GetHead().GetSHA(),
				HTMLURL:   pr.GetHTMLURL(),
				UpdatedAt: pr.GetUpdatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListPullRequestFiles returns the paths changed by a pull request. Lyric
// submissions change exactly one file, but renames and workflow edits can add
// more, so callers pick the path they care about.
func (g *gitHubClient) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}
	var paths []string
	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list pull request files", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		for _, file := range files {
			paths = append(paths, file.GetFilename())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return paths, nil
}

// ListCommentsSince retrieves issue comments posted on a pull request after
// the given time, oldest first.
func (g *gitHubClient) ListCommentsSince(ctx context.Context, owner, repo string, number int, since time.Time) ([]Comment, error) {
	opts := &github.IssueListCommentsOptions{
		Since:       &since,
		Sort:        github.Ptr("created"),
		Direction:   github.Ptr("asc"),
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var all []Comment
	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list comments", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		for _, comment := range comments {
			all = append(all, Comment{
				ID:        comment.GetID(),
				Author:    comment.GetUser().GetLogin(),
				Body:      comment.GetBody(),
				CreatedAt: comment.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateComment creates a new comment on a pull request.
func (g *gitHubClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: &body}
	_, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		g.logger.Error("failed to create comment", "owner", owner, "repo", repo, "pr", number, "error", err)
	}
	return err
}

// CreateGist uploads files as a gist and returns the raw content URLs.
func (g *gitHubClient) CreateGist(ctx context.Context, description string, public bool, files map[string]string) (*GistResult, error) {
	gistFiles := make(map[github.GistFilename]github.GistFile, len(files))
	for name, content := range files {
		gistFiles[github.GistFilename(name)] = github.GistFile{Content: github.Ptr(content)}
	}
	gist, _, err := g.client.Gists.Create(ctx, &github.Gist{
		Description: &description,
		Public:      &public,
		Files:       gistFiles,
	})
	if err != nil {
		g.logger.Error("failed to create gist", "error", err)
		return nil, err
	}
	rawURLs := make(map[string]string, len(gist.Files))
	for name, file := range gist.Files {
		rawURLs[string(name)] = file.GetRawURL()
	}
	return &GistResult{
		ID:      gist.GetID(),
		HTMLURL: gist.GetHTMLURL(),
		RawURLs: rawURLs,
	}, nil
}

// GetAuthenticatedUser returns the login of the token's user.
func (g *gitHubClient) GetAuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		g.logger.Error("failed to get authenticated user", "error", err)
		return "", err
	}
	return user.GetLogin(), nil
}

// IsCollaborator reports whether the user is a collaborator on the repository.
func (g *gitHubClient) IsCollaborator(ctx context.Context, owner, repo, user string) (bool, error) {
	ok, _, err := g.client.Repositories.IsCollaborator(ctx, owner, repo, user)
	if err != nil {
		g.logger.Error("failed to check collaborator status", "owner", owner, "repo", repo, "user", user, "error", err)
		return false, err
	}
	return ok, nil
}

// ListLabels retrieves the repository's labels, sorted by name.
func (g *gitHubClient) ListLabels(ctx context.Context, owner, repo string) ([]core.ReviewLabel, error) {
	opts := &github.ListOptions{PerPage: 100}
	var all []core.ReviewLabel
	for {
		labels, resp, err := g.client.Issues.ListLabels(ctx, owner, repo, opts)
		if err != nil {
			g.logger.Error("failed to list labels", "owner", owner, "repo", repo, "error", err)
			return nil, err
		}
		for _, label := range labels {
			all = append(all, core.ReviewLabel{Name: label.GetName(), Color: label.GetColor()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}
