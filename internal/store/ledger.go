package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"synnergy-network/internal/domain"
	"synnergy-network/pkg/utils"
)

// Executor is satisfied by *pgxpool.Pool, pgx.Tx and a savepoint-scoped
// sub-transaction alike, letting repository methods run either directly
// against the pool or inside the Sync Worker's per-event transaction
// (spec.md §4.6).
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// EventLedger is the Event Ledger from spec.md §4.2: an append-only,
// idempotently-keyed record of every decoded log the Sync Worker has seen.
type EventLedger struct{}

// NewEventLedger constructs an EventLedger. It holds no state of its own —
// every method takes the Executor to run against, so it works identically
// against the pool or a savepoint sub-transaction.
func NewEventLedger() *EventLedger {
	return &EventLedger{}
}

// InsertIfAbsent inserts ev unless a row with the same (chain_id, tx_hash,
// log_index) already exists, in which case it is silently skipped — the
// idempotency contract in spec.md §4.2 and §7. Reports whether a new row
// was actually inserted and stamps ev.ID on success.
func (l *EventLedger) InsertIfAbsent(ctx context.Context, q Executor, ev *domain.OnchainEvent) (bool, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return false, utils.Wrap(err, "marshal event payload")
	}

	const query = `
		INSERT INTO onchain_events (
			chain_id, contract_address, tx_hash, log_index,
			event_name, agreement_id, block_number, block_hash, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		RETURNING id
	`

	var id int64
	err = q.QueryRow(ctx, query,
		ev.ChainID, ev.ContractAddress, ev.TxHash, ev.LogIndex,
		string(ev.EventName), ev.AgreementID, ev.BlockNumber, ev.BlockHash, payload,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, utils.Wrap(err, "insert onchain event")
	}
	ev.ID = id
	return true, nil
}

// MarkProcessed stamps an event row with the time its projection completed.
func (l *EventLedger) MarkProcessed(ctx context.Context, q Executor, eventID int64) error {
	const query = `UPDATE onchain_events SET processed_at = now() WHERE id = $1`
	_, err := q.Exec(ctx, query, eventID)
	return utils.Wrap(err, "mark event processed")
}

// LatestProcessedBlock returns the highest block number recorded in the
// ledger for (chainID, contractAddress), or 0 when it holds no events.
func (l *EventLedger) LatestProcessedBlock(ctx context.Context, q Executor, chainID int64, contractAddress string) (uint64, error) {
	const query = `
		SELECT COALESCE(MAX(block_number), 0) FROM onchain_events
		WHERE chain_id = $1 AND contract_address = $2
	`
	var block uint64
	if err := q.QueryRow(ctx, query, chainID, contractAddress).Scan(&block); err != nil {
		return 0, utils.Wrap(err, "latest processed block")
	}
	return block, nil
}
