package service

import (
	"context"
	"fmt"

	"shopfront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// inTx runs fn inside a transaction, committing when fn succeeds and rolling
// back otherwise.
func inTx(ctx context.Context, db repository.TxBeginner, logger zerolog.Logger, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
