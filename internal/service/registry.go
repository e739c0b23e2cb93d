package service

import (
	"context"
	"fmt"

	"github.com/adnanh27/postbridge/internal/errs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/transfer"
)

// PlatformAdapter is the OAuth capability set a platform integration
// provides. HandleCallback never raises for external-API failures; those
// come back inside the OAuthResult. RefreshAccessToken returns nil on
// any failure after logging the cause, leaving the re-auth decision to
// the caller.
type PlatformAdapter interface {
	Platform() string
	GenerateAuthURL(state string) (*transfer.AuthURL, error)
	HandleCallback(ctx context.Context, code, codeVerifier string) *transfer.OAuthResult
	RefreshAccessToken(ctx context.Context, refreshToken string) *transfer.OAuthTokens
}

// PlatformPublisher publishes a post to one platform. Implementations
// enforce the platform's content constraints and classify API failures
// into the errs categories.
type PlatformPublisher interface {
	Platform() string
	Publish(ctx context.Context, post *models.Post, acc *models.SocialAccount, accessToken string) transfer.PublishOutcome
}

// Registry is the closed dispatch table for platform integrations.
// Unknown platform names are rejected here at startup, not discovered
// at execution time inside a switch.
type Registry struct {
	adapters   map[string]PlatformAdapter
	publishers map[string]PlatformPublisher
}

func NewRegistry() *Registry {
	return &Registry{
		adapters:   make(map[string]PlatformAdapter),
		publishers: make(map[string]PlatformPublisher),
	}
}

func (r *Registry) RegisterAdapter(a PlatformAdapter) {
	r.adapters[a.Platform()] = a
}

func (r *Registry) RegisterPublisher(p PlatformPublisher) {
	r.publishers[p.Platform()] = p
}

func (r *Registry) Adapter(platform string) (PlatformAdapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

func (r *Registry) Publisher(platform string) (PlatformPublisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

// Validate checks the registry covers every platform the deployment
// needs. Called once during startup.
func (r *Registry) Validate(adapterPlatforms, publisherPlatforms []string) error {
	for _, platform := range adapterPlatforms {
		if _, ok := r.adapters[platform]; !ok {
			return errs.NewConfiguration(fmt.Sprintf("no oauth adapter registered for platform %q", platform))
		}
	}
	for _, platform := range publisherPlatforms {
		if _, ok := r.publishers[platform]; !ok {
			return errs.NewConfiguration(fmt.Sprintf("no publisher registered for platform %q", platform))
		}
	}
	return nil
}
