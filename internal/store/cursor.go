package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"synnergy-network/internal/domain"
	"synnergy-network/pkg/utils"
)

// CursorStore is the Sync Cursor Store from spec.md §4.3: the single
// per-(chain, contract) checkpoint the Sync Worker advances after each
// committed batch.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore wraps pool for cursor access.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// GetOrInit returns the current cursor for (chainID, contractAddress),
// creating one at startBlock if none exists yet.
func (c *CursorStore) GetOrInit(ctx context.Context, chainID int64, contractAddress string, startBlock, confirmations, reorgBuffer uint64) (*domain.ChainSyncState, error) {
	const selectQuery = `
		SELECT chain_id, contract_address, last_processed_block, last_finalized_block, confirmations, reorg_buffer, updated_at
		FROM chain_sync_state
		WHERE chain_id = $1 AND contract_address = $2
	`
	state := &domain.ChainSyncState{}
	err := c.pool.QueryRow(ctx, selectQuery, chainID, contractAddress).Scan(
		&state.ChainID, &state.ContractAddress, &state.LastProcessedBlock,
		&state.LastFinalizedBlock, &state.Confirmations, &state.ReorgBuffer, &state.UpdatedAt,
	)
	if err == nil {
		return state, nil
	}
	if err != pgx.ErrNoRows {
		return nil, utils.Wrap(err, "load sync cursor")
	}

	const insertQuery = `
		INSERT INTO chain_sync_state (chain_id, contract_address, last_processed_block, confirmations, reorg_buffer)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chain_id, contract_address) DO NOTHING
		RETURNING chain_id, contract_address, last_processed_block, last_finalized_block, confirmations, reorg_buffer, updated_at
	`
	err = c.pool.QueryRow(ctx, insertQuery, chainID, contractAddress, startBlock, confirmations, reorgBuffer).Scan(
		&state.ChainID, &state.ContractAddress, &state.LastProcessedBlock,
		&state.LastFinalizedBlock, &state.Confirmations, &state.ReorgBuffer, &state.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		// Another process initialized the cursor between our select and
		// insert; re-read instead of treating it as a failure.
		return c.GetOrInit(ctx, chainID, contractAddress, startBlock, confirmations, reorgBuffer)
	}
	if err != nil {
		return nil, utils.Wrap(err, "init sync cursor")
	}
	return state, nil
}

// Commit advances the cursor to lastProcessedBlock and records the chain
// tip used to compute it. Callers run this inside the same transaction as
// the batch's ledger inserts and projector writes, so the cursor update
// is part of the batch transaction (spec.md §4.3, §4.6 step g).
func (c *CursorStore) Commit(ctx context.Context, q Executor, chainID int64, contractAddress string, lastProcessedBlock, lastFinalizedBlock uint64) error {
	const query = `
		UPDATE chain_sync_state
		SET last_processed_block = $3, last_finalized_block = $4, updated_at = now()
		WHERE chain_id = $1 AND contract_address = $2
	`
	_, err := q.Exec(ctx, query, chainID, contractAddress, lastProcessedBlock, lastFinalizedBlock)
	return utils.Wrap(err, "commit sync cursor")
}
