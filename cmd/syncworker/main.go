// Command syncworker runs the escrow chain synchronization subsystem: the
// Sync Worker and the Cleanup Worker, started together and drained
// together on shutdown.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"synnergy-network/internal/chain"
	"synnergy-network/internal/config"
	"synnergy-network/internal/logging"
	"synnergy-network/internal/projector"
	"synnergy-network/internal/store"
	"synnergy-network/internal/sync"
)

const shutdownGrace = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:   "syncworker",
		Short: "Run the escrow chain sync and session cleanup workers",
		RunE:  run,
	}
	root.Flags().String("env-file", "", "path to a .env file (optional)")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := logging.New("syncworker")

	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		// Configuration errors refuse to start (spec.md §7).
		log.WithError(err).Fatal("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
		return err
	}
	defer pool.Close()

	// RPC unreachable at boot is not fatal (spec.md §6); LazyClient dials
	// on first use and the worker logs/retries on every subsequent call.
	client := chain.NewLazyClient(cfg.RPCURL)

	decoder := chain.NewDecoder()
	ledger := store.NewEventLedger()
	cursor := store.NewCursorStore(pool)
	agreements := store.NewAgreementStore()
	disputes := store.NewDisputeStore()
	users := store.NewUserStore()
	sessions := store.NewSessionStore(pool)

	proj := projector.New(agreements, disputes, users)

	worker := sync.NewWorker(client, decoder, pool, ledger, cursor, proj, sync.WorkerConfig{
		ChainID:              cfg.ChainID,
		ContractAddress:      cfg.EscrowContractAddress,
		PollInterval:         time.Duration(cfg.SyncIntervalSeconds) * time.Second,
		Confirmations:        cfg.Confirmations,
		ReorgBuffer:          cfg.ReorgBuffer,
		MaxBlocksPerFetch:    cfg.MaxBlocksPerFetch,
		MaxBatchesPerSession: cfg.MaxBatchesPerSession,
	}, log.WithField("worker", "sync"))

	cleanup := sync.NewCleanupWorker(sessions, time.Duration(cfg.SessionCleanupIntervalSeconds)*time.Second, log.WithField("worker", "cleanup"))

	worker.Start(ctx)
	cleanup.Start(ctx)

	<-ctx.Done()
	log.Info("shutdown signal received, draining workers")
	worker.Stop(shutdownGrace)
	cleanup.Stop(shutdownGrace)

	return nil
}
