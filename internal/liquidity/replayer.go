package liquidity

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/observability"
)

// Replayer turns position-token transfers into synthetic underlying-token
// transfers, so that position holders can be credited with indirect balances
// by the same ledger replay used for direct holdings.
type Replayer struct {
	logger zerolog.Logger
}

// NewReplayer creates a Replayer.
func NewReplayer(logger zerolog.Logger) *Replayer {
	return &Replayer{logger: logger}
}

// ReplayResult is the output of Replay.
type ReplayResult struct {
	// Transfers holds two events (token0, token1) per decomposed snapshot,
	// ordered by pool then snapshot order.
	Transfers  []*domain.TransferEvent
	Decomposed int
	Skipped    int
}

// Replay decomposes every snapshot with timestamp <= cutoff. Snapshots are
// processed per pool in non-decreasing (timestamp, block, id) order; a
// snapshot that fails the data-integrity checks is skipped and logged.
func (r *Replayer) Replay(snaps []*domain.PositionSnapshot, cutoff int64) ReplayResult {
	byPool := make(map[common.Address][]*domain.PositionSnapshot)
	for _, s := range snaps {
		if s == nil || s.Timestamp > cutoff {
			continue
		}
		byPool[s.Pool] = append(byPool[s.Pool], s)
	}

	pools := make([]common.Address, 0, len(byPool))
	for p := range byPool {
		pools = append(pools, p)
	}
	sort.Slice(pools, func(i, j int) bool {
		return bytes.Compare(pools[i][:], pools[j][:]) < 0
	})

	var res ReplayResult
	for _, pool := range pools {
		series := byPool[pool]
		sort.SliceStable(series, func(i, j int) bool {
			a, b := series[i], series[j]
			if a.Timestamp != b.Timestamp {
				return a.Timestamp < b.Timestamp
			}
			if a.BlockNumber != b.BlockNumber {
				return a.BlockNumber < b.BlockNumber
			}
			return a.ID < b.ID
		})

		for _, s := range series {
			if s.Transfer.Value == nil || s.Transfer.Value.Sign() == 0 || s.Transfer.From == s.Transfer.To {
				continue
			}
			amount0, amount1, err := DecomposeSnapshot(s)
			if err != nil {
				res.Skipped++
				reason := "decompose_error"
				if errors.Is(err, ErrDataIntegrity) {
					reason = "data_integrity"
				}
				observability.RecordSkipped(reason)
				r.logger.Warn().
					Err(err).
					Str("snapshot", s.ID).
					Str("pool", s.Pool.Hex()).
					Msg("skipping position snapshot")
				continue
			}

			res.Decomposed++
			res.Transfers = append(res.Transfers,
				synthetic(s, s.Token0, amount0, ":0"),
				synthetic(s, s.Token1, amount1, ":1"),
			)
		}
	}
	return res
}

func synthetic(s *domain.PositionSnapshot, token common.Address, value *big.Int, suffix string) *domain.TransferEvent {
	return &domain.TransferEvent{
		ID:          s.ID + suffix,
		Token:       token,
		From:        s.Transfer.From,
		To:          s.Transfer.To,
		Value:       value,
		Timestamp:   s.Timestamp,
		BlockNumber: s.BlockNumber,
	}
}
