package config

import (
	"os"
	"testing"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"RPC_URL", "CHAIN_ID", "ESCROW_CONTRACT_ADDRESS", "SYNC_INTERVAL_SECONDS",
		"CONFIRMATIONS", "REORG_BUFFER", "MAX_BLOCKS_PER_FETCH", "MAX_BATCHES_PER_SESSION",
		"DATABASE_URL", "SESSION_CLEANUP_INTERVAL_SECONDS",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoadMissingRPCURLFails(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("CHAIN_ID", "1")
	os.Setenv("ESCROW_CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")
	os.Setenv("DATABASE_URL", "postgres://localhost/escrow")
	defer clearConfigEnv(t)

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when RPC_URL is missing")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("RPC_URL", "https://rpc.example.com")
	os.Setenv("CHAIN_ID", "1")
	os.Setenv("ESCROW_CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")
	os.Setenv("DATABASE_URL", "postgres://localhost/escrow")
	defer clearConfigEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncIntervalSeconds != 15 {
		t.Errorf("SyncIntervalSeconds = %d, want 15", cfg.SyncIntervalSeconds)
	}
	if cfg.Confirmations != 6 {
		t.Errorf("Confirmations = %d, want 6", cfg.Confirmations)
	}
	if cfg.MaxBlocksPerFetch != 1000 {
		t.Errorf("MaxBlocksPerFetch = %d, want 1000", cfg.MaxBlocksPerFetch)
	}
	if cfg.MaxBatchesPerSession != 20 {
		t.Errorf("MaxBatchesPerSession = %d, want 20", cfg.MaxBatchesPerSession)
	}
}

func TestLoadRejectsInvalidContractAddress(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("RPC_URL", "https://rpc.example.com")
	os.Setenv("CHAIN_ID", "1")
	os.Setenv("ESCROW_CONTRACT_ADDRESS", "not-an-address")
	os.Setenv("DATABASE_URL", "postgres://localhost/escrow")
	defer clearConfigEnv(t)

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid contract address")
	}
}
