// Command synctl is the operational CLI for the escrow chain-sync
// subsystem: applying the storage schema and inspecting the current sync
// cursor, the two operations an operator needs outside the running
// syncworker process itself.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"synnergy-network/internal/config"
	"synnergy-network/internal/store"
)

func main() {
	rootCmd := &cobra.Command{Use: "synctl"}
	rootCmd.PersistentFlags().String("env-file", "", "path to a .env file (optional)")
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(cursorCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfigAndPool(cmd *cobra.Command) (*config.Config, *store.Pool, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	pool, err := store.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the chain-sync schema to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(context.Background())
			_, pool, err := loadConfigAndPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pool.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("schema applied")
			return nil
		},
	}
}

func cursorCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cursor"}
	cmd.AddCommand(cursorShowCmd())
	return cmd
}

func cursorShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "print the current sync cursor for a chain/contract pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(context.Background())
			cfg, pool, err := loadConfigAndPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			cursor := store.NewCursorStore(pool)
			state, err := cursor.GetOrInit(cmd.Context(), cfg.ChainID, cfg.EscrowContractAddress, 0, cfg.Confirmations, cfg.ReorgBuffer)
			if err != nil {
				return err
			}
			fmt.Printf("chain_id=%d contract=%s last_processed_block=%d last_finalized_block=%d updated_at=%s\n",
				state.ChainID, state.ContractAddress, state.LastProcessedBlock, state.LastFinalizedBlock, state.UpdatedAt)
			return nil
		},
	}
}
