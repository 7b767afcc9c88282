package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"citadelScope/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for pool snapshots.
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

// EnsureSchema creates the snapshot tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutSnapshotBatch stores snapshots; it lets Store act as a snapshot sink.
func (s *Store) PutSnapshotBatch(ctx context.Context, snapshots []model.PoolSnapshot) error {
	return s.UpsertPoolSnapshots(ctx, snapshots)
}

// UpsertPoolSnapshots inserts or updates one row per vault and block.
func (s *Store) UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		payload, err := json.Marshal(snap.Vault)
		if err != nil {
			return fmt.Errorf("marshal vault %s: %w", snap.Vault.ID, err)
		}
		batch.Queue(`
			INSERT INTO pool_snapshots (
				chain_id, vault_id, block_number, vault_address, fingerprint,
				tvl, apy, apy_fallback, read_errors, observed_at, payload, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (chain_id, vault_id, block_number)
			DO UPDATE SET
				vault_address = EXCLUDED.vault_address,
				fingerprint = EXCLUDED.fingerprint,
				tvl = EXCLUDED.tvl,
				apy = EXCLUDED.apy,
				apy_fallback = EXCLUDED.apy_fallback,
				read_errors = EXCLUDED.read_errors,
				observed_at = EXCLUDED.observed_at,
				payload = EXCLUDED.payload,
				updated_at = now()
		`,
			int64(snap.ChainID),
			snap.Vault.ID,
			int64(snap.BlockNumber),
			snap.Vault.Address,
			snap.Fingerprint,
			snap.Vault.TVL,
			snap.Vault.APY,
			snap.Vault.APYFallback,
			snap.ReadErrors,
			snap.ObservedAt,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestSnapshots returns the newest snapshot of every vault on a chain.
func (s *Store) LatestSnapshots(ctx context.Context, chainID uint64) ([]model.PoolSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (vault_id)
			block_number, fingerprint, read_errors, observed_at, payload
		FROM pool_snapshots
		WHERE chain_id = $1
		ORDER BY vault_id, block_number DESC
	`, int64(chainID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PoolSnapshot
	for rows.Next() {
		var (
			block   int64
			payload []byte
			snap    = model.PoolSnapshot{ChainID: chainID}
		)
		if err := rows.Scan(&block, &snap.Fingerprint, &snap.ReadErrors, &snap.ObservedAt, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &snap.Vault); err != nil {
			return nil, fmt.Errorf("decode vault payload: %w", err)
		}
		snap.BlockNumber = uint64(block)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LoadState returns the last persisted block and fingerprint for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, string, bool, error) {
	if name == "" {
		return 0, "", false, fmt.Errorf("state name required")
	}
	var (
		block       int64
		fingerprint string
	)
	row := s.pool.QueryRow(ctx, `SELECT block_number, fingerprint FROM snapshot_state WHERE name=$1`, name)
	if err := row.Scan(&block, &fingerprint); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", false, nil
		}
		return 0, "", false, err
	}
	return uint64(block), fingerprint, true, nil
}

// SaveState upserts the last persisted block and fingerprint for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64, fingerprint string) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO snapshot_state (name, block_number, fingerprint, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET block_number = EXCLUDED.block_number, fingerprint = EXCLUDED.fingerprint, updated_at = now()
	`, name, int64(block), fingerprint)
	return err
}
