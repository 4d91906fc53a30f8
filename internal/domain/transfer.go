package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the mint/burn address. It never appears in holder-facing output.
var ZeroAddress = common.Address{}

// TransferEvent represents a single ERC20 Transfer log of an indexed token.
// Immutable fact; corresponds to transfer_history table in ClickHouse.
type TransferEvent struct {
	ID          string         // subgraph entity id (tx hash + log index)
	Token       common.Address // token contract
	From        common.Address // sender (zero address on mint)
	To          common.Address // recipient (zero address on burn)
	Value       *big.Int       // raw amount, token-decimal scaled
	Timestamp   int64          // block timestamp, unix seconds
	BlockNumber int64          // block number
}

// IsMint reports whether the transfer creates supply.
func (e *TransferEvent) IsMint() bool {
	return e.From == ZeroAddress
}

// IsBurn reports whether the transfer destroys supply.
func (e *TransferEvent) IsBurn() bool {
	return e.To == ZeroAddress
}
