package store

import (
	"context"

	"synnergy-network/pkg/utils"
)

// SessionStore is the collaborator adapter the Cleanup Worker uses, per
// spec.md §4.7 and §4.8: it only ever deletes rows already past
// their expiry, never reads or creates individual sessions.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore wraps pool for session cleanup.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// DeleteExpired removes every session whose expiry has passed and reports
// how many rows were removed.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < now()`
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, utils.Wrap(err, "delete expired sessions")
	}
	return tag.RowsAffected(), nil
}
