// Package projector implements the State Projector: the sole writer of
// agreement and dispute lifecycle columns, driven entirely by decoded
// on-chain events (spec.md §4.5).
package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"synnergy-network/internal/chain"
	"synnergy-network/internal/domain"
	"synnergy-network/internal/store"
)

// AgreementStore is the narrow agreement collaborator the Projector needs.
// Satisfied by *store.AgreementStore.
type AgreementStore interface {
	Get(ctx context.Context, q store.Executor, agreementID string) (*domain.Agreement, error)
	MarkCreated(ctx context.Context, q store.Executor, agreementID, txHash string, at time.Time) error
	MarkFunded(ctx context.Context, q store.Executor, agreementID, txHash string) error
	MarkDisputed(ctx context.Context, q store.Executor, agreementID string) error
	MarkReleased(ctx context.Context, q store.Executor, agreementID, txHash string) error
	MarkRefunded(ctx context.Context, q store.Executor, agreementID, txHash string) error
}

// DisputeStore is the narrow dispute collaborator the Projector needs.
// Satisfied by *store.DisputeStore.
type DisputeStore interface {
	Open(ctx context.Context, q store.Executor, d *domain.Dispute) error
	GetOpen(ctx context.Context, q store.Executor, agreementID string) (*domain.Dispute, error)
	Resolve(ctx context.Context, q store.Executor, disputeID uuid.UUID, resolution domain.DisputeResolution, txHash string) error
}

// UserStore is the narrow user collaborator the Projector needs. Satisfied
// by *store.UserStore.
type UserStore interface {
	FindByWalletAddress(ctx context.Context, q store.Executor, walletAddress string) (*domain.User, error)
}

// IDGenerator produces new dispute identifiers. Exists so tests can pin
// deterministic UUIDs without touching crypto/rand indirectly.
type IDGenerator func() uuid.UUID

// Projector applies decoded events to agreement and dispute state,
// following the transition table in spec.md §4.5 exactly.
type Projector struct {
	agreements AgreementStore
	disputes   DisputeStore
	users      UserStore
	newID      IDGenerator
}

// New constructs a Projector over the given collaborators.
func New(agreements AgreementStore, disputes DisputeStore, users UserStore) *Projector {
	return &Projector{agreements: agreements, disputes: disputes, users: users, newID: uuid.New}
}

// Apply performs one event's effect on agreement and dispute rows. The
// caller (Sync Worker) only invokes this after Event Ledger insertIfAbsent
// returned true, which is what makes repeated Apply calls for the same
// event impossible in practice; the rules below are written defensively
// anyway so a misuse never corrupts state.
//
// processedAt is the processing time the Sync Worker assigns to the event.
// It stamps created_onchain_at and a new dispute's opened_at; funded_at,
// released_at, refunded_at and a dispute's resolved_at are set by the
// database's now() instead and do not use it.
func (p *Projector) Apply(ctx context.Context, q store.Executor, ev *chain.DecodedEvent, agreementID string, txHash string, processedAt time.Time) error {
	switch ev.Name {
	case domain.EventAgreementCreated:
		return p.applyCreated(ctx, q, agreementID, txHash, processedAt)
	case domain.EventPaymentFunded:
		return p.applyFunded(ctx, q, agreementID, txHash)
	case domain.EventDisputeOpened:
		return p.applyDisputeOpened(ctx, q, ev, agreementID, txHash, processedAt)
	case domain.EventPaymentReleased:
		return p.applyReleased(ctx, q, agreementID, txHash, processedAt)
	case domain.EventPaymentRefunded:
		return p.applyRefunded(ctx, q, agreementID, txHash, processedAt)
	default:
		return nil
	}
}

// getAgreement loads an agreement, translating a missing row into
// domain.ErrOrphanedEvent while still letting errors.Is(err, pgx.ErrNoRows)
// match — an on-chain event referencing an agreement id with no matching
// off-chain draft (spec.md §7).
func (p *Projector) getAgreement(ctx context.Context, q store.Executor, agreementID string) (*domain.Agreement, error) {
	a, err := p.agreements.Get(ctx, q, agreementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: agreement %s: %w", domain.ErrOrphanedEvent, agreementID, err)
		}
		return nil, err
	}
	return a, nil
}

// applyCreated handles AGREEMENT_CREATED. An agreement absent from our
// table means it was created on-chain without a matching off-chain draft;
// that is an orphaned event (spec.md §7), signaled via getAgreement so
// the Sync Worker's savepoint rolls back and continues.
func (p *Projector) applyCreated(ctx context.Context, q store.Executor, agreementID, txHash string, processedAt time.Time) error {
	a, err := p.getAgreement(ctx, q, agreementID)
	if err != nil {
		return err
	}
	if a.Status != domain.AgreementDraft {
		// Already CREATED or beyond: replay, no-op.
		return nil
	}
	return p.agreements.MarkCreated(ctx, q, agreementID, txHash, processedAt)
}

func (p *Projector) applyFunded(ctx context.Context, q store.Executor, agreementID, txHash string) error {
	a, err := p.getAgreement(ctx, q, agreementID)
	if err != nil {
		return err
	}
	if a.Status != domain.AgreementCreated {
		return nil
	}
	return p.agreements.MarkFunded(ctx, q, agreementID, txHash)
}

// applyDisputeOpened sets the agreement DISPUTED unless it already is,
// then upserts a Dispute row. An unknown openedBy wallet still lets the
// status change through but skips dispute creation, per spec.md §4.5.
func (p *Projector) applyDisputeOpened(ctx context.Context, q store.Executor, ev *chain.DecodedEvent, agreementID, txHash string, processedAt time.Time) error {
	a, err := p.getAgreement(ctx, q, agreementID)
	if err != nil {
		return err
	}
	if a.Status.IsTerminal() {
		// A terminal agreement cannot be disputed again. Keep the
		// authoritative terminal state (spec.md §7).
		return fmt.Errorf("%w: agreement %s already %s", domain.ErrInvariantBreach, agreementID, a.Status)
	}
	if a.Status != domain.AgreementDisputed {
		if err := p.agreements.MarkDisputed(ctx, q, agreementID); err != nil {
			return err
		}
	}

	if _, err := p.disputes.GetOpen(ctx, q, agreementID); err == nil {
		// A dispute already exists; never overwrite opened_by.
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	openedByAddr, _ := ev.Args["openedBy"].(string)
	user, err := p.users.FindByWalletAddress(ctx, q, openedByAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown wallet: status change stands, dispute creation skipped.
			return nil
		}
		return err
	}

	return p.disputes.Open(ctx, q, &domain.Dispute{
		ID:          p.newID(),
		AgreementID: agreementID,
		OpenedBy:    user.ID,
		Status:      domain.DisputeOpen,
		OpenedAt:    processedAt,
	})
}

func (p *Projector) applyReleased(ctx context.Context, q store.Executor, agreementID, txHash string, processedAt time.Time) error {
	return p.settle(ctx, q, agreementID, txHash, domain.AgreementReleased, domain.ResolutionRelease, processedAt)
}

func (p *Projector) applyRefunded(ctx context.Context, q store.Executor, agreementID, txHash string, processedAt time.Time) error {
	return p.settle(ctx, q, agreementID, txHash, domain.AgreementRefunded, domain.ResolutionRefund, processedAt)
}

// settle marks an agreement RELEASED or REFUNDED from any non-terminal
// status, and resolves an open dispute if one exists. An agreement that is
// already RELEASED or REFUNDED keeps its status and the call returns
// domain.ErrInvariantBreach. The REDESIGN carried from spec.md:
// justification is not synthesized, even though a resolution without
// justification is a valid terminal state.
func (p *Projector) settle(ctx context.Context, q store.Executor, agreementID, txHash string, status domain.AgreementStatus, resolution domain.DisputeResolution, processedAt time.Time) error {
	a, err := p.getAgreement(ctx, q, agreementID)
	if err != nil {
		return err
	}
	if a.Status.IsTerminal() {
		// Already settled: a second RELEASED/REFUNDED for the same
		// agreement. Keep the authoritative terminal state (spec.md §7).
		return fmt.Errorf("%w: agreement %s already %s", domain.ErrInvariantBreach, agreementID, a.Status)
	}

	var markErr error
	if status == domain.AgreementReleased {
		markErr = p.agreements.MarkReleased(ctx, q, agreementID, txHash)
	} else {
		markErr = p.agreements.MarkRefunded(ctx, q, agreementID, txHash)
	}
	if markErr != nil {
		return markErr
	}

	dispute, err := p.disputes.GetOpen(ctx, q, agreementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if dispute.Resolution != nil {
		return nil
	}
	return p.disputes.Resolve(ctx, q, dispute.ID, resolution, txHash)
}
