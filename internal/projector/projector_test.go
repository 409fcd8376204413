package projector

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"synnergy-network/internal/chain"
	"synnergy-network/internal/domain"
	"synnergy-network/internal/store"
)

type fakeAgreements struct {
	rows map[string]*domain.Agreement
}

func newFakeAgreements() *fakeAgreements {
	return &fakeAgreements{rows: make(map[string]*domain.Agreement)}
}

func (f *fakeAgreements) Get(_ context.Context, _ store.Executor, agreementID string) (*domain.Agreement, error) {
	a, ok := f.rows[agreementID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAgreements) MarkCreated(_ context.Context, _ store.Executor, agreementID, txHash string, at time.Time) error {
	a := f.rows[agreementID]
	a.Status = domain.AgreementCreated
	a.CreatedTxHash = &txHash
	a.CreatedOnchainAt = &at
	return nil
}

func (f *fakeAgreements) MarkFunded(_ context.Context, _ store.Executor, agreementID, txHash string) error {
	a := f.rows[agreementID]
	a.Status = domain.AgreementFunded
	a.FundedTxHash = &txHash
	return nil
}

func (f *fakeAgreements) MarkDisputed(_ context.Context, _ store.Executor, agreementID string) error {
	f.rows[agreementID].Status = domain.AgreementDisputed
	return nil
}

func (f *fakeAgreements) MarkReleased(_ context.Context, _ store.Executor, agreementID, txHash string) error {
	a := f.rows[agreementID]
	a.Status = domain.AgreementReleased
	a.ReleasedTxHash = &txHash
	return nil
}

func (f *fakeAgreements) MarkRefunded(_ context.Context, _ store.Executor, agreementID, txHash string) error {
	a := f.rows[agreementID]
	a.Status = domain.AgreementRefunded
	a.RefundedTxHash = &txHash
	return nil
}

type fakeDisputes struct {
	open map[string]*domain.Dispute
	byID map[uuid.UUID]*domain.Dispute
}

func newFakeDisputes() *fakeDisputes {
	return &fakeDisputes{open: make(map[string]*domain.Dispute), byID: make(map[uuid.UUID]*domain.Dispute)}
}

func (f *fakeDisputes) Open(_ context.Context, _ store.Executor, d *domain.Dispute) error {
	cp := *d
	f.open[d.AgreementID] = &cp
	f.byID[d.ID] = &cp
	return nil
}

func (f *fakeDisputes) GetOpen(_ context.Context, _ store.Executor, agreementID string) (*domain.Dispute, error) {
	d, ok := f.open[agreementID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDisputes) Resolve(_ context.Context, _ store.Executor, disputeID uuid.UUID, resolution domain.DisputeResolution, txHash string) error {
	d := f.byID[disputeID]
	d.Resolution = &resolution
	d.ResolutionTxHash = &txHash
	delete(f.open, d.AgreementID)
	return nil
}

type fakeUsers struct {
	byWallet map[string]*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byWallet: make(map[string]*domain.User)}
}

func (f *fakeUsers) FindByWalletAddress(_ context.Context, _ store.Executor, addr string) (*domain.User, error) {
	u, ok := f.byWallet[addr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func newTestProjector() (*Projector, *fakeAgreements, *fakeDisputes, *fakeUsers) {
	ag := newFakeAgreements()
	disp := newFakeDisputes()
	usr := newFakeUsers()
	p := New(ag, disp, usr)
	return p, ag, disp, usr
}

var testAgreementID = "0x11" + strings.Repeat("0", 62)

func seedDraft(ag *fakeAgreements) {
	payer := uuid.New()
	payee := uuid.New()
	ag.rows[testAgreementID] = &domain.Agreement{
		AgreementID: testAgreementID,
		PayerID:     payer,
		PayeeID:     payee,
		Policy:      domain.PolicyNone,
		Amount:      big.NewInt(1000),
		Status:      domain.AgreementDraft,
	}
}

func TestApplyHappyPathReleaseNoDispute(t *testing.T) {
	p, ag, _, _ := newTestProjector()
	seedDraft(ag)
	ctx := context.Background()
	now := time.Now()

	mustApply(t, p, ctx, domain.EventAgreementCreated, nil, testAgreementID, "0xc1", now)
	mustApply(t, p, ctx, domain.EventPaymentFunded, nil, testAgreementID, "0xf1", now)
	mustApply(t, p, ctx, domain.EventPaymentReleased, nil, testAgreementID, "0xr1", now)

	got := ag.rows[testAgreementID]
	if got.Status != domain.AgreementReleased {
		t.Fatalf("status = %s, want RELEASED", got.Status)
	}
	if got.ReleasedTxHash == nil || *got.ReleasedTxHash != "0xr1" {
		t.Fatalf("released tx hash = %v", got.ReleasedTxHash)
	}
}

func TestApplyDisputeThenRelease(t *testing.T) {
	p, ag, disp, usr := newTestProjector()
	seedDraft(ag)
	wallet := "0x00000000000000000000000000000000000abc"
	usr.byWallet[wallet] = &domain.User{ID: uuid.New(), WalletAddress: &wallet}
	ctx := context.Background()
	now := time.Now()

	mustApply(t, p, ctx, domain.EventAgreementCreated, nil, testAgreementID, "0xc1", now)
	mustApply(t, p, ctx, domain.EventPaymentFunded, nil, testAgreementID, "0xf1", now)
	mustApply(t, p, ctx, domain.EventDisputeOpened, map[string]any{"openedBy": wallet}, testAgreementID, "0xd1", now)

	if ag.rows[testAgreementID].Status != domain.AgreementDisputed {
		t.Fatalf("status after dispute = %s", ag.rows[testAgreementID].Status)
	}
	if _, ok := disp.open[testAgreementID]; !ok {
		t.Fatal("expected an open dispute")
	}

	mustApply(t, p, ctx, domain.EventPaymentReleased, nil, testAgreementID, "0xr1", now)

	if ag.rows[testAgreementID].Status != domain.AgreementReleased {
		t.Fatalf("status = %s, want RELEASED", ag.rows[testAgreementID].Status)
	}
	if _, stillOpen := disp.open[testAgreementID]; stillOpen {
		t.Fatal("dispute should be resolved, not open")
	}
	for _, d := range disp.byID {
		if d.AgreementID != testAgreementID {
			continue
		}
		if d.Resolution == nil || *d.Resolution != domain.ResolutionRelease {
			t.Fatalf("resolution = %v, want RELEASE", d.Resolution)
		}
		if d.Justification != nil {
			t.Fatalf("justification = %v, want nil (redesign: never synthesize)", *d.Justification)
		}
	}
}

func TestApplyDisputeOpenedUnknownWalletStillSetsStatus(t *testing.T) {
	p, ag, disp, _ := newTestProjector()
	seedDraft(ag)
	ctx := context.Background()
	now := time.Now()

	mustApply(t, p, ctx, domain.EventAgreementCreated, nil, testAgreementID, "0xc1", now)
	mustApply(t, p, ctx, domain.EventPaymentFunded, nil, testAgreementID, "0xf1", now)
	mustApply(t, p, ctx, domain.EventDisputeOpened, map[string]any{"openedBy": "0xunknown00000000000000000000000000000000"}, testAgreementID, "0xd1", now)

	if ag.rows[testAgreementID].Status != domain.AgreementDisputed {
		t.Fatalf("status = %s, want DISPUTED even with unknown wallet", ag.rows[testAgreementID].Status)
	}
	if _, ok := disp.open[testAgreementID]; ok {
		t.Fatal("dispute should not be created for unknown wallet")
	}
}

func TestApplyIdempotentReplayOfCreated(t *testing.T) {
	p, ag, _, _ := newTestProjector()
	seedDraft(ag)
	ctx := context.Background()
	now := time.Now()

	mustApply(t, p, ctx, domain.EventAgreementCreated, nil, testAgreementID, "0xc1", now)
	firstHash := ag.rows[testAgreementID].CreatedTxHash

	mustApply(t, p, ctx, domain.EventAgreementCreated, nil, testAgreementID, "0xc2-should-be-ignored", now)

	if *ag.rows[testAgreementID].CreatedTxHash != *firstHash {
		t.Fatalf("replay mutated created_tx_hash: got %v want %v", *ag.rows[testAgreementID].CreatedTxHash, *firstHash)
	}
}

func TestApplyOrphanedEventMissingAgreement(t *testing.T) {
	p, _, _, _ := newTestProjector()
	ctx := context.Background()

	err := p.Apply(ctx, nil, &chain.DecodedEvent{Name: domain.EventPaymentFunded}, "0xdeadbeef", "0xtx", time.Now())
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows for orphaned event, got %v", err)
	}
}

func TestApplyReleaseIsTerminalNoOpOnSecondCall(t *testing.T) {
	p, ag, _, _ := newTestProjector()
	seedDraft(ag)
	ctx := context.Background()
	now := time.Now()

	mustApply(t, p, ctx, domain.EventAgreementCreated, nil, testAgreementID, "0xc1", now)
	mustApply(t, p, ctx, domain.EventPaymentFunded, nil, testAgreementID, "0xf1", now)
	mustApply(t, p, ctx, domain.EventPaymentReleased, nil, testAgreementID, "0xr1", now)

	err := p.Apply(ctx, nil, &chain.DecodedEvent{Name: domain.EventPaymentRefunded}, testAgreementID, "0xrf1", now)
	if !errors.Is(err, domain.ErrInvariantBreach) {
		t.Fatalf("expected ErrInvariantBreach for refund after release, got %v", err)
	}

	got := ag.rows[testAgreementID]
	if got.Status != domain.AgreementReleased {
		t.Fatalf("status = %s, want RELEASED to remain authoritative", got.Status)
	}
}

func mustApply(t *testing.T, p *Projector, ctx context.Context, name domain.OnchainEventName, args map[string]any, agreementID, txHash string, processedAt time.Time) {
	t.Helper()
	if err := p.Apply(ctx, nil, &chain.DecodedEvent{Name: name, AgreementID: agreementID, Args: args}, agreementID, txHash, processedAt); err != nil {
		t.Fatalf("Apply(%s): %v", name, err)
	}
}
