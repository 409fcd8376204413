// Package domain holds the entities the chain synchronization subsystem
// reads and writes: users, agreements, disputes, on-chain events and the
// per-contract sync cursor. Lifecycle columns on Agreement and Dispute are
// owned exclusively by the Projector, and the Sync Worker owns the event
// ledger and the cursor; users are read-only to this service and sessions
// are only deleted once expired.
package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// AgreementStatus is the lifecycle state of an escrow agreement.
type AgreementStatus string

const (
	AgreementDraft     AgreementStatus = "DRAFT"
	AgreementCreated   AgreementStatus = "CREATED"
	AgreementFunded    AgreementStatus = "FUNDED"
	AgreementDisputed  AgreementStatus = "DISPUTED"
	AgreementReleased  AgreementStatus = "RELEASED"
	AgreementRefunded  AgreementStatus = "REFUNDED"
)

// IsTerminal reports whether status is an absorbing state.
func (s AgreementStatus) IsTerminal() bool {
	return s == AgreementReleased || s == AgreementRefunded
}

// ArbitrationPolicy mirrors the on-chain enum carried by AgreementCreated.
type ArbitrationPolicy string

const (
	PolicyNone            ArbitrationPolicy = "NONE"
	PolicyWithArbitrator  ArbitrationPolicy = "WITH_ARBITRATOR"
)

// User is a participant known to the off-chain system. Owned by the HTTP
// surface; this service only reads it via wallet address lookup.
type User struct {
	ID            uuid.UUID
	Email         string
	WalletAddress *string // lowercase 0x-prefixed 40-hex, unique when present
	OAuthProvider *string
	OAuthID       *string
}

// Agreement is the escrow contract instance between a payer and payee.
// Only the Projector may write Status, any *TxHash field, or any *At
// timestamp other than CreatedAt/UpdatedAt.
type Agreement struct {
	AgreementID string // "0x"+64 lowercase hex, primary key
	PayerID     uuid.UUID
	PayeeID     uuid.UUID
	ArbitratorID *uuid.UUID
	Policy      ArbitrationPolicy
	Amount      *big.Int
	Status      AgreementStatus

	CreatedTxHash  *string
	FundedTxHash   *string
	ReleasedTxHash *string
	RefundedTxHash *string

	CreatedOnchainAt *time.Time
	FundedAt         *time.Time
	ReleasedAt       *time.Time
	RefundedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisputeStatus is the lifecycle state of a dispute.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "OPEN"
	DisputeResolved DisputeStatus = "RESOLVED"
)

// DisputeResolution records which side a resolved dispute favored.
type DisputeResolution string

const (
	ResolutionRelease DisputeResolution = "RELEASE"
	ResolutionRefund  DisputeResolution = "REFUND"
)

// Dispute is at most one per agreement (unique FK on AgreementID).
type Dispute struct {
	ID               uuid.UUID
	AgreementID      string
	OpenedBy         uuid.UUID
	Status           DisputeStatus
	Resolution       *DisputeResolution
	ResolutionTxHash *string
	Justification    *string
	OpenedAt         time.Time
	ResolvedAt       *time.Time
}

// OnchainEventName enumerates the five known contract events.
type OnchainEventName string

const (
	EventAgreementCreated OnchainEventName = "AGREEMENT_CREATED"
	EventPaymentFunded    OnchainEventName = "PAYMENT_FUNDED"
	EventDisputeOpened    OnchainEventName = "DISPUTE_OPENED"
	EventPaymentReleased  OnchainEventName = "PAYMENT_RELEASED"
	EventPaymentRefunded  OnchainEventName = "PAYMENT_REFUNDED"
)

// OnchainEvent is an append-only, idempotently-keyed record of a decoded
// log. Unique on (ChainID, TxHash, LogIndex) — the sole idempotency key.
type OnchainEvent struct {
	ID              int64
	ChainID         int64
	ContractAddress string
	TxHash          string
	LogIndex        uint32
	EventName       OnchainEventName
	AgreementID     string
	BlockNumber     uint64
	BlockHash       string
	Payload         map[string]any
	ProcessedAt     time.Time
}

// ChainSyncState is the per-(chain, contract) checkpoint. Owned entirely by
// the Sync Worker.
type ChainSyncState struct {
	ChainID            int64
	ContractAddress    string
	LastProcessedBlock uint64
	LastFinalizedBlock uint64
	Confirmations      uint64
	ReorgBuffer        uint64
	UpdatedAt          time.Time
}

// Session is a refresh-token session owned by the out-of-scope auth flow.
// The Cleanup Worker only deletes expired rows; it never creates or reads
// individual sessions for any other purpose.
type Session struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	RefreshTokenHash string
	ExpiresAt        time.Time
	CreatedAt        time.Time
}
