package store

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"

	"synnergy-network/internal/domain"
	"synnergy-network/pkg/utils"
)

var errBadAmount = errors.New("store: agreement amount is not a valid decimal integer")

// AgreementStore gives the Projector narrow read/write access to agreement
// rows, per spec.md §4.5. Every write the Projector makes here runs inside
// the Sync Worker's per-event savepoint transaction.
type AgreementStore struct{}

// NewAgreementStore constructs an AgreementStore.
func NewAgreementStore() *AgreementStore {
	return &AgreementStore{}
}

// Get loads an agreement by ID. Returns pgx.ErrNoRows if absent — callers
// treat that as an orphaned event per spec.md §7.
func (s *AgreementStore) Get(ctx context.Context, q Executor, agreementID string) (*domain.Agreement, error) {
	const query = `
		SELECT agreement_id, payer_id, payee_id, arbitrator_id, policy, amount, status,
		       created_tx_hash, funded_tx_hash, released_tx_hash, refunded_tx_hash,
		       created_onchain_at, funded_at, released_at, refunded_at,
		       created_at, updated_at
		FROM agreements WHERE agreement_id = $1
	`
	a := &domain.Agreement{}
	var amount, policy, status string
	err := q.QueryRow(ctx, query, agreementID).Scan(
		&a.AgreementID, &a.PayerID, &a.PayeeID, &a.ArbitratorID, &policy, &amount, &status,
		&a.CreatedTxHash, &a.FundedTxHash, &a.ReleasedTxHash, &a.RefundedTxHash,
		&a.CreatedOnchainAt, &a.FundedAt, &a.ReleasedAt, &a.RefundedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, utils.Wrap(err, "load agreement")
	}
	a.Policy = domain.ArbitrationPolicy(policy)
	a.Status = domain.AgreementStatus(status)
	a.Amount = new(big.Int)
	if _, ok := a.Amount.SetString(amount, 10); !ok {
		return nil, utils.Wrap(errBadAmount, "load agreement")
	}
	return a, nil
}

// Insert creates a new agreement row. The payer, payee and (if set)
// arbitrator users must already exist; a missing one surfaces as a
// foreign key violation. Used by the HTTP surface when a participant
// drafts an agreement off-chain, before any on-chain event exists for it;
// the Sync Worker and the Projector never call it.
func (s *AgreementStore) Insert(ctx context.Context, q Executor, a *domain.Agreement) error {
	const query = `
		INSERT INTO agreements (
			agreement_id, payer_id, payee_id, arbitrator_id, policy, amount, status,
			created_tx_hash, created_onchain_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.Exec(ctx, query,
		a.AgreementID, a.PayerID, a.PayeeID, a.ArbitratorID, string(a.Policy), a.Amount.String(), string(a.Status),
		a.CreatedTxHash, a.CreatedOnchainAt,
	)
	return utils.Wrap(err, "insert agreement")
}

// MarkCreated transitions DRAFT -> CREATED on AGREEMENT_CREATED. The row
// already exists (the HTTP surface drafts it off-chain per spec.md §3);
// this only stamps the on-chain confirmation.
func (s *AgreementStore) MarkCreated(ctx context.Context, q Executor, agreementID, txHash string, at time.Time) error {
	const query = `
		UPDATE agreements SET status = $2, created_tx_hash = $3, created_onchain_at = $4, updated_at = now()
		WHERE agreement_id = $1
	`
	_, err := q.Exec(ctx, query, agreementID, string(domain.AgreementCreated), txHash, at)
	return utils.Wrap(err, "mark agreement created")
}

// MarkFunded transitions CREATED -> FUNDED on PAYMENT_FUNDED.
func (s *AgreementStore) MarkFunded(ctx context.Context, q Executor, agreementID, txHash string) error {
	const query = `
		UPDATE agreements SET status = $2, funded_tx_hash = $3, funded_at = now(), updated_at = now()
		WHERE agreement_id = $1
	`
	_, err := q.Exec(ctx, query, agreementID, string(domain.AgreementFunded), txHash)
	return utils.Wrap(err, "mark agreement funded")
}

// MarkDisputed transitions FUNDED -> DISPUTED on DISPUTE_OPENED.
func (s *AgreementStore) MarkDisputed(ctx context.Context, q Executor, agreementID string) error {
	const query = `UPDATE agreements SET status = $2, updated_at = now() WHERE agreement_id = $1`
	_, err := q.Exec(ctx, query, agreementID, string(domain.AgreementDisputed))
	return utils.Wrap(err, "mark agreement disputed")
}

// MarkReleased transitions FUNDED or DISPUTED -> RELEASED on
// PAYMENT_RELEASED.
func (s *AgreementStore) MarkReleased(ctx context.Context, q Executor, agreementID, txHash string) error {
	const query = `
		UPDATE agreements SET status = $2, released_tx_hash = $3, released_at = now(), updated_at = now()
		WHERE agreement_id = $1
	`
	_, err := q.Exec(ctx, query, agreementID, string(domain.AgreementReleased), txHash)
	return utils.Wrap(err, "mark agreement released")
}

// MarkRefunded transitions FUNDED or DISPUTED -> REFUNDED on
// PAYMENT_REFUNDED.
func (s *AgreementStore) MarkRefunded(ctx context.Context, q Executor, agreementID, txHash string) error {
	const query = `
		UPDATE agreements SET status = $2, refunded_tx_hash = $3, refunded_at = now(), updated_at = now()
		WHERE agreement_id = $1
	`
	_, err := q.Exec(ctx, query, agreementID, string(domain.AgreementRefunded), txHash)
	return utils.Wrap(err, "mark agreement refunded")
}
