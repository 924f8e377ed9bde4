package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 2024060103_create_bank_and_shares.sql
var createBankAndSharesSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createBankAndSharesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS leaderboard_entries; DROP TABLE IF EXISTS shared_exams; DROP TABLE IF EXISTS bank_entries`)
			return err
		},
	)
}
