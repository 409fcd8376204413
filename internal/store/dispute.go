package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"synnergy-network/internal/domain"
	"synnergy-network/pkg/utils"
)

// DisputeStore gives the Projector access to dispute rows, per spec.md
// §4.5. At most one open dispute exists per agreement, enforced by the
// partial unique index on disputes(agreement_id) WHERE status = 'OPEN'.
type DisputeStore struct{}

// NewDisputeStore constructs a DisputeStore.
func NewDisputeStore() *DisputeStore {
	return &DisputeStore{}
}

// Open inserts a new OPEN dispute on DISPUTE_OPENED.
func (s *DisputeStore) Open(ctx context.Context, q Executor, d *domain.Dispute) error {
	const query = `
		INSERT INTO disputes (id, agreement_id, opened_by, status, opened_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.Exec(ctx, query, d.ID, d.AgreementID, d.OpenedBy, string(domain.DisputeOpen), d.OpenedAt)
	return utils.Wrap(err, "insert dispute")
}

// GetOpen loads the open dispute for an agreement, if any. Returns
// pgx.ErrNoRows when none is open.
func (s *DisputeStore) GetOpen(ctx context.Context, q Executor, agreementID string) (*domain.Dispute, error) {
	const query = `
		SELECT id, agreement_id, opened_by, status, resolution, resolution_tx_hash, justification, opened_at, resolved_at
		FROM disputes WHERE agreement_id = $1 AND status = 'OPEN'
	`
	d := &domain.Dispute{}
	var status string
	var resolution *string
	err := q.QueryRow(ctx, query, agreementID).Scan(
		&d.ID, &d.AgreementID, &d.OpenedBy, &status, &resolution,
		&d.ResolutionTxHash, &d.Justification, &d.OpenedAt, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, utils.Wrap(err, "load open dispute")
	}
	d.Status = domain.DisputeStatus(status)
	if resolution != nil {
		r := domain.DisputeResolution(*resolution)
		d.Resolution = &r
	}
	return d, nil
}

// Resolve closes the open dispute for an agreement with the given
// resolution. Justification is not written — this system never synthesizes
// placeholder dispute narration, only the on-chain event itself.
func (s *DisputeStore) Resolve(ctx context.Context, q Executor, disputeID uuid.UUID, resolution domain.DisputeResolution, txHash string) error {
	const query = `
		UPDATE disputes
		SET status = $2, resolution = $3, resolution_tx_hash = $4, resolved_at = now()
		WHERE id = $1
	`
	_, err := q.Exec(ctx, query, disputeID, string(domain.DisputeResolved), string(resolution), txHash)
	return utils.Wrap(err, "resolve dispute")
}
