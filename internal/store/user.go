package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"synnergy-network/internal/domain"
	"synnergy-network/pkg/utils"
)

// UserStore is the read-only collaborator adapter over the users table,
// per spec.md §4.8: the Projector only ever looks a user up by wallet
// address, it never creates or mutates one.
type UserStore struct{}

// NewUserStore constructs a UserStore.
func NewUserStore() *UserStore {
	return &UserStore{}
}

// FindByWalletAddress looks up a user by their normalized wallet address.
// Returns pgx.ErrNoRows when the event references a wallet this system
// has never onboarded; the Projector then skips creating the dispute row
// but keeps the agreement's status change.
func (s *UserStore) FindByWalletAddress(ctx context.Context, q Executor, walletAddress string) (*domain.User, error) {
	const query = `
		SELECT id, email, wallet_address, oauth_provider, oauth_id
		FROM users WHERE wallet_address = $1
	`
	u := &domain.User{}
	err := q.QueryRow(ctx, query, walletAddress).Scan(&u.ID, &u.Email, &u.WalletAddress, &u.OAuthProvider, &u.OAuthID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, utils.Wrap(err, "find user by wallet address")
	}
	return u, nil
}
