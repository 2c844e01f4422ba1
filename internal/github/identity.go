package github

import (
	"context"
	"strings"

	"github.com/sevigo/lyric-warden/internal/core"
)

// IdentityStatus classifies the outcome of a review-access check.
type IdentityStatus string

const (
	IdentityMissingToken IdentityStatus = "missing-token"
	IdentityAuthorized   IdentityStatus = "authorized"
	IdentityUnauthorized IdentityStatus = "unauthorized"
	IdentityError        IdentityStatus = "error"
)

// IdentityResult is the outcome of verifying whether the authenticated user
// may review the lyric repository.
type IdentityResult struct {
	Status IdentityStatus     `json:"status"`
	Login  string             `json:"login,omitempty"`
	Labels []core.ReviewLabel `json:"labels,omitempty"`
}

// VerifyAccess checks that the client's user is the repository owner or a
// collaborator. Authorized users additionally get the repository's label set,
// which the review listing needs for its filters.
func VerifyAccess(ctx context.Context, client Client, token, owner, repo string) IdentityResult {
	if strings.TrimSpace(token) == "" {
		return IdentityResult{Status: IdentityMissingToken}
	}

	login, err := client.GetAuthenticatedUser(ctx)
	if err != nil || login == "" {
		return IdentityResult{Status: IdentityError}
	}

	allowed := strings.EqualFold(login, owner)
	if !allowed {
		isCollaborator, err := client.IsCollaborator(ctx, owner, repo, login)
		if err != nil {
			return IdentityResult{Status: IdentityError, Login: login}
		}
		allowed = isCollaborator
	}
	if !allowed {
		return IdentityResult{Status: IdentityUnauthorized, Login: login}
	}

	labels, err := client.ListLabels(ctx, owner, repo)
	if err != nil {
		// Access is proven; missing labels only degrade the listing filters.
		labels = nil
	}
	return IdentityResult{Status: IdentityAuthorized, Login: login, Labels: labels}
}
