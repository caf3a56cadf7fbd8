package renewal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	errs "github.com/jrsteele09/go-erp-client/internal/errors"
	"github.com/jrsteele09/go-erp-client/session"
)

// renewalKey is the single-flight key: there is only ever one credential to
// renew, so every caller shares the same slot.
const renewalKey = "credential-renewal"

// RenewFunc calls the backend renewal endpoint with the stored refresh token
// and returns a fresh access token. It must not go through the resilient
// request pipeline, or a rejected renewal would try to renew itself.
type RenewFunc func(ctx context.Context, refreshToken string) (string, error)

// Coordinator guarantees at most one in-flight credential renewal
// system-wide. When N requests expire at once, exactly one renewal call is
// issued and all N callers observe its result - the same fresh token or the
// same failure. The slot clears on completion so a later expiry can trigger
// a fresh renewal.
type Coordinator struct {
	store *session.Store
	renew RenewFunc
	group singleflight.Group
}

// NewCoordinator creates a Coordinator bound to the session store.
func NewCoordinator(store *session.Store, renew RenewFunc) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("[NewCoordinator] session store is required")
	}
	if renew == nil {
		return nil, errors.New("[NewCoordinator] renew function is required")
	}
	return &Coordinator{store: store, renew: renew}, nil
}

// Renew returns a fresh access token, joining the in-flight renewal if one
// is already outstanding. On success the store's credential has been updated
// before Renew returns. Failure is terminal for the current session; the
// caller is expected to cascade into Store.Logout.
func (c *Coordinator) Renew(ctx context.Context) (string, error) {
	result, err, shared := c.group.Do(renewalKey, func() (interface{}, error) {
		snapshot := c.store.Snapshot()
		if snapshot.Credential == nil {
			return nil, errs.ErrNoRefreshToken
		}

		access, err := c.renew(ctx, snapshot.Credential.RefreshToken)
		if err != nil {
			return nil, errors.Wrap(err, "[Coordinator.Renew] renewal call")
		}

		renewed := session.Credential{
			AccessToken:  access,
			RefreshToken: snapshot.Credential.RefreshToken,
		}
		// No-op if the user logged out while the renewal was in flight;
		// the fresh token is still handed to waiting retries, which will
		// then fail their replay and surface normally.
		if err := c.store.SetCredential(renewed); err != nil {
			return nil, errors.Wrap(err, "[Coordinator.Renew] storing credential")
		}

		log.Debug().Time("access_expiry", renewed.AccessTokenExpiry()).Msg("credential renewed")
		return access, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug().Msg("joined in-flight credential renewal")
	}

	access, ok := result.(string)
	if !ok {
		return "", errors.Wrap(errs.ErrInternal, "[Coordinator.Renew] unexpected renewal result type")
	}
	return access, nil
}
