// Package account provisions local accounts from federated remote
// identities: one account per namespaced remote id, converged on every
// login.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/my-favourite-streamers/federation"
)

// Store represents the subset of document-store functionality used to
// create and update account records
type Store interface {
	UpsertAccessToken(ctx context.Context, uid, accessToken string) error
	UpdateProfile(ctx context.Context, uid, displayName, avatarURL string) error
	Create(ctx context.Context, account *federation.Account) error
}

// Minter issues short-lived signed assertions bound to an account id
type Minter interface {
	Mint(uid string) (string, error)
}

type Provisioner struct {
	store  Store
	minter Minter
}

func NewProvisioner(store Store, minter Minter) *Provisioner {
	return &Provisioner{
		store:  store,
		minter: minter,
	}
}

// Provision converges the account record for the given remote identity and
// returns a fresh signed assertion for it. The access-token merge runs first
// and unconditionally: if any later step fails, a retry of the whole flow
// converges on the same record. No assertion is returned unless every step
// succeeds.
func (p *Provisioner) Provision(ctx context.Context, remoteID, displayName, avatarURL, accessToken string) (string, error) {
	uid := federation.UID(remoteID)

	if err := p.store.UpsertAccessToken(ctx, uid, accessToken); err != nil {
		return "", fmt.Errorf("failed to upsert access token for %s: %w", uid, err)
	}

	if err := p.store.UpdateProfile(ctx, uid, displayName, avatarURL); err != nil {
		if !errors.Is(err, federation.ErrAccountNotFound) {
			return "", fmt.Errorf("failed to update profile for %s: %w", uid, err)
		}
		// First login: no account exists yet, so create it
		if err := p.store.Create(ctx, &federation.Account{
			UID:         uid,
			DisplayName: displayName,
			AvatarURL:   avatarURL,
			AccessToken: accessToken,
		}); err != nil {
			return "", fmt.Errorf("failed to create account %s: %w", uid, err)
		}
	}

	assertion, err := p.minter.Mint(uid)
	if err != nil {
		return "", fmt.Errorf("failed to mint signed assertion for %s: %w", uid, err)
	}
	return assertion, nil
}
