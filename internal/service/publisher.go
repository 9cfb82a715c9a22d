package service

import (
	"context"

	"github.com/almgren/publika/internal/models"
)

// ResolvedCredential is what the token resolver hands a publisher: a
// plaintext access token plus the external account (or page) it belongs to.
type ResolvedCredential struct {
	Platform    string
	AccountID   string
	AccountName string
	AccessToken string
}

// PublishOutcome is the normalized success payload of one platform call.
type PublishOutcome struct {
	ExternalRef string
	PageName    string
}

// Publisher performs the platform-specific publish call. Implementations
// return an error whose message is directly user-facing; the orchestrator
// does not interpret errors beyond recording them per platform.
type Publisher interface {
	Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error)
}
