package sync

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"synnergy-network/internal/chain"
	"synnergy-network/internal/domain"
	"synnergy-network/internal/projector"
	"synnergy-network/internal/store"
)

// WorkerConfig holds the Sync Worker's tunables from spec.md §4.6.
type WorkerConfig struct {
	ChainID              int64
	ContractAddress      string
	PollInterval         time.Duration
	Confirmations        uint64
	ReorgBuffer          uint64
	MaxBlocksPerFetch    uint64
	MaxBatchesPerSession int
}

// Worker is the Sync Worker: one long-running task per (chain id, contract
// address) that repeatedly catches the off-chain projection up to the
// chain head (spec.md §4.6).
type Worker struct {
	lifecycle

	client    chain.Client
	decoder   *chain.Decoder
	pool      *store.Pool
	ledger    *store.EventLedger
	cursor    *store.CursorStore
	projector *projector.Projector

	cfg WorkerConfig
	log *logrus.Entry
}

// NewWorker constructs a Sync Worker over its collaborators.
func NewWorker(client chain.Client, decoder *chain.Decoder, pool *store.Pool, ledger *store.EventLedger, cursor *store.CursorStore, proj *projector.Projector, cfg WorkerConfig, log *logrus.Entry) *Worker {
	return &Worker{
		client: client, decoder: decoder, pool: pool, ledger: ledger, cursor: cursor, projector: proj,
		cfg: cfg, log: log,
	}
}

// Start launches the worker's background loop. Calling Start twice has no
// effect until Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.lifecycle.start(ctx, w.run)
	w.log.WithField("contract", w.cfg.ContractAddress).Info("sync worker started")
}

// Stop cancels the background loop and waits up to grace for it to drain.
func (w *Worker) Stop(grace time.Duration) {
	w.lifecycle.stop(grace)
	w.log.Info("sync worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		w.runSession(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// runSession acquires one storage session's worth of batches, bounded by
// MaxBatchesPerSession, then releases it (spec.md §4.6 outer loop).
func (w *Worker) runSession(ctx context.Context) {
	for i := 0; i < w.cfg.MaxBatchesPerSession; i++ {
		if ctx.Err() != nil {
			return
		}
		reachedTop, err := w.runBatch(ctx)
		if err != nil {
			// Batch-fatal but recoverable (spec.md §7): roll back, log,
			// retry at the next poll tick.
			w.log.WithError(err).Error("sync batch failed, will retry next poll")
			return
		}
		if reachedTop {
			return
		}
	}
}

// runBatch runs exactly one batch: load the cursor, fetch one bounded
// range of logs, apply them in order inside per-event savepoints, then
// atomically advance the cursor (spec.md §4.6 step 2).
func (w *Worker) runBatch(ctx context.Context) (reachedTop bool, err error) {
	state, err := w.cursor.GetOrInit(ctx, w.cfg.ChainID, w.cfg.ContractAddress, 0, w.cfg.Confirmations, w.cfg.ReorgBuffer)
	if err != nil {
		return false, err
	}

	tipBlock, err := w.client.CurrentBlock(ctx)
	if err != nil {
		// Transient (spec.md §7): surfaces as a batch failure, absorbed by
		// the outer loop's next poll tick.
		return false, err
	}

	tip, ok := confirmedTip(tipBlock, w.cfg.Confirmations)
	if !ok || tip <= state.LastProcessedBlock {
		return true, nil
	}
	from, to := nextFetchRange(state.LastProcessedBlock, tip, w.cfg.MaxBlocksPerFetch)

	logs, err := w.client.GetLogs(ctx, from, to, w.cfg.ContractAddress)
	if err != nil {
		return false, err
	}
	chain.SortLogs(logs)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	for _, raw := range logs {
		if err := w.applyOneLog(ctx, tx, raw); err != nil {
			return false, err
		}
	}

	if err := w.cursor.Commit(ctx, tx, w.cfg.ChainID, w.cfg.ContractAddress, to, tipBlock); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return to >= tip, nil
}

// applyOneLog decodes and applies a single log within a savepoint-scoped
// sub-transaction of tx, so one event's failure never wedges the batch
// (spec.md §4.6 step f, §5 transaction discipline).
func (w *Worker) applyOneLog(ctx context.Context, tx pgx.Tx, raw chain.RawLog) error {
	decoded, err := w.decoder.Decode(raw)
	if err != nil {
		w.log.WithError(err).WithField("tx_hash", hexOf(raw.TxHash[:])).Warn("skipping undecodable log")
		return nil
	}

	txHash := hexOf(raw.TxHash[:])
	blockHash := hexOf(raw.BlockHash[:])
	processedAt := time.Now().UTC()

	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}

	ev := &domain.OnchainEvent{
		ChainID:         w.cfg.ChainID,
		ContractAddress: w.cfg.ContractAddress,
		TxHash:          txHash,
		LogIndex:        raw.LogIndex,
		EventName:       decoded.Name,
		AgreementID:     decoded.AgreementID,
		BlockNumber:     raw.BlockNumber,
		BlockHash:       blockHash,
		Payload:         decoded.Args,
	}

	inserted, err := w.ledger.InsertIfAbsent(ctx, sp, ev)
	if err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if !inserted {
		// Already seen — idempotent no-op, commit the empty sub-transaction.
		return sp.Commit(ctx)
	}

	if err := w.projector.Apply(ctx, sp, decoded, decoded.AgreementID, txHash, processedAt); err != nil {
		if isOrphanedEventErr(err) {
			_ = sp.Rollback(ctx)
			w.log.WithFields(logrus.Fields{
				"agreement_id": decoded.AgreementID,
				"tx_hash":      txHash,
			}).Warn("orphaned on-chain event, skipping")
			return nil
		}
		if errors.Is(err, domain.ErrInvariantBreach) {
			_ = sp.Rollback(ctx)
			w.log.WithFields(logrus.Fields{
				"agreement_id": decoded.AgreementID,
				"tx_hash":      txHash,
			}).WithError(err).Warn("invariant breach, keeping authoritative state")
			return nil
		}
		_ = sp.Rollback(ctx)
		return err
	}

	if err := w.ledger.MarkProcessed(ctx, sp, ev.ID); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}

	return sp.Commit(ctx)
}

// isOrphanedEventErr classifies a projector failure as an isolated,
// event-fatal referential-integrity problem (spec.md §7): either the
// referenced row does not exist, or a foreign key constraint rejected the
// write.
func isOrphanedEventErr(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return true
	}
	return false
}

func hexOf(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// confirmedTip subtracts the reorg-safety lag from the chain tip. ok is
// false when the chain hasn't produced enough blocks yet for any
// confirmed tip to exist.
func confirmedTip(tipBlock, confirmations uint64) (tip uint64, ok bool) {
	if tipBlock < confirmations {
		return 0, false
	}
	return tipBlock - confirmations, true
}

// nextFetchRange computes the inclusive [from, to] block range for the
// next fetch, bounded by maxBlocksPerFetch (spec.md §4.6 step c).
func nextFetchRange(lastProcessedBlock, confirmedTip, maxBlocksPerFetch uint64) (from, to uint64) {
	from = lastProcessedBlock + 1
	to = confirmedTip
	if span := from + maxBlocksPerFetch - 1; span < to {
		to = span
	}
	return from, to
}
