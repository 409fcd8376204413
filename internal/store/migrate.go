package store

import (
	"context"
	_ "embed"

	"synnergy-network/pkg/utils"
)

//go:embed schema/schema.sql
var schemaSQL string

// Migrate applies the chain-sync subsystem's schema. Every statement is
// CREATE ... IF NOT EXISTS, so running it against an already-migrated
// database is a no-op.
func (p *Pool) Migrate(ctx context.Context) error {
	_, err := p.Exec(ctx, schemaSQL)
	return utils.Wrap(err, "apply schema")
}
