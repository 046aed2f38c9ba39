package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
)

const refreshWindow = 30 * time.Minute

// TokenRefresher renews the stored transport token.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) error
}

type TokenRefreshJob struct {
	cr         repository.CredentialRepository
	refreshers map[string]TokenRefresher
}

func NewTokenRefreshJob(cr repository.CredentialRepository, x TokenRefresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr:         cr,
		refreshers: map[string]TokenRefresher{models.PlatformX: x},
	}
}

// RefreshTokens renews every credential that expires within the next 30 minutes.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	credentials, err := c.cr.ListExpiring(ctx, time.Now().Add(refreshWindow))
	if err != nil {
		slog.Error("failed to list expiring credentials", "error", err)
		return
	}

	for _, cred := range credentials {
		refresher, ok := c.refreshers[cred.Platform]
		if !ok {
			continue
		}
		if err := refresher.RefreshToken(ctx); err != nil {
			slog.Error("unable to refresh token", "platform", cred.Platform, "error", err)
			continue
		}
		slog.Info("token refreshed", "platform", cred.Platform)
	}
}
