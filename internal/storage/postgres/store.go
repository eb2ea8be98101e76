package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IDTOKENONE/spectrum-core/internal/model"
)

// Store provides Postgres persistence for compound records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertCompoundRecords writes a batch of compound records.
func (s *Store) InsertCompoundRecords(ctx context.Context, records []model.CompoundRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		rewards, err := json.Marshal(record.Rewards)
		if err != nil {
			return fmt.Errorf("marshal rewards: %w", err)
		}
		instructions, err := json.Marshal(record.Instructions)
		if err != nil {
			return fmt.Errorf("marshal instructions: %w", err)
		}
		batch.Queue(`
			INSERT INTO compound_records (
				chain_id, height, pair, caller, receiver, rewards, instructions, executed_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		`,
			int64(record.ChainID),
			int64(record.Height),
			record.Pair,
			record.Caller,
			record.Receiver,
			rewards,
			instructions,
			record.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutCompoundBatch implements storage.Storage.
func (s *Store) PutCompoundBatch(records []model.CompoundRecord) error {
	return s.InsertCompoundRecords(context.Background(), records)
}
