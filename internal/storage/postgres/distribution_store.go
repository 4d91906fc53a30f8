package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/storage"
)

// DistributionStore implements storage.DistributionStore using PostgreSQL.
type DistributionStore struct {
	pool *Pool
}

// NewDistributionStore creates a new DistributionStore.
func NewDistributionStore(pool *Pool) *DistributionStore {
	return &DistributionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DistributionStore = (*DistributionStore)(nil)

const upsertDistributionSQL = `
	INSERT INTO airdrop_distributions (
		address, chain_id, timestamp,
		direct_holding, indirect_holding, ser_lpp_holding,
		share_of_holding, share_of_holding_poh, share_of_holding_ser_lpp,
		allocated_amount, seer_tokens_count
	) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10::numeric, $11)
	ON CONFLICT (address, chain_id, timestamp) DO UPDATE
	SET direct_holding = EXCLUDED.direct_holding,
	    indirect_holding = EXCLUDED.indirect_holding,
	    ser_lpp_holding = EXCLUDED.ser_lpp_holding,
	    share_of_holding = EXCLUDED.share_of_holding,
	    share_of_holding_poh = EXCLUDED.share_of_holding_poh,
	    share_of_holding_ser_lpp = EXCLUDED.share_of_holding_ser_lpp,
	    allocated_amount = EXCLUDED.allocated_amount,
	    seer_tokens_count = EXCLUDED.seer_tokens_count,
	    updated_at = NOW()
`

// UpsertBatch writes all records in one transaction.
func (s *DistributionStore) UpsertBatch(ctx context.Context, records []*domain.DistributionRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	err := s.pool.inTx(ctx, "upsert_distributions", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(upsertDistributionSQL,
				hexAddr(r.Holder),
				r.ChainID,
				r.Timestamp,
				r.DirectHolding.String(),
				r.IndirectHolding.String(),
				r.LoyaltyHolding.String(),
				r.ShareOfHolding,
				r.ShareOfHoldingVerified,
				r.ShareOfHoldingLoyalty,
				r.AllocatedAmount.String(),
				r.OutcomeTokensCount,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range records {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("upsert record %d: %w", i, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("upsert distributions: %w: %w", storage.ErrPersistence, err)
	}
	return nil
}

// GetBySnapshot retrieves the records of one snapshot ordered by address.
func (s *DistributionStore) GetBySnapshot(ctx context.Context, chainID, timestamp int64) ([]*domain.DistributionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, chain_id, timestamp,
		       direct_holding::text, indirect_holding::text, ser_lpp_holding::text,
		       share_of_holding, share_of_holding_poh, share_of_holding_ser_lpp,
		       allocated_amount::text, seer_tokens_count
		FROM airdrop_distributions
		WHERE chain_id = $1 AND timestamp = $2
		ORDER BY address ASC
	`, chainID, timestamp)
	if err != nil {
		return nil, fmt.Errorf("query distributions: %w", err)
	}
	defer rows.Close()

	var out []*domain.DistributionRecord
	for rows.Next() {
		var (
			r                                  domain.DistributionRecord
			addr, direct, indirect, loyalty, a string
		)
		err := rows.Scan(&addr, &r.ChainID, &r.Timestamp,
			&direct, &indirect, &loyalty,
			&r.ShareOfHolding, &r.ShareOfHoldingVerified, &r.ShareOfHoldingLoyalty,
			&a, &r.OutcomeTokensCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}

		r.Holder = common.HexToAddress(addr)
		if r.DirectHolding, err = decimal.NewFromString(direct); err != nil {
			return nil, fmt.Errorf("parse direct_holding: %w", err)
		}
		if r.IndirectHolding, err = decimal.NewFromString(indirect); err != nil {
			return nil, fmt.Errorf("parse indirect_holding: %w", err)
		}
		if r.LoyaltyHolding, err = decimal.NewFromString(loyalty); err != nil {
			return nil, fmt.Errorf("parse ser_lpp_holding: %w", err)
		}
		if r.AllocatedAmount, err = decimal.NewFromString(a); err != nil {
			return nil, fmt.Errorf("parse allocated_amount: %w", err)
		}
		out = append(out, &r)
	}

	return out, rows.Err()
}

func hexAddr(a common.Address) string {
	return strings.ToLower(a.Hex())
}
