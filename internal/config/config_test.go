package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
postgres_dsn: postgres://u:p@localhost:5432/airdrop
chains:
  - id: 100
    name: gnosis
    collateral_token: "0xaf204776c7245bf4147c2612bf6e5972ee483701"
    loyalty_token: "0x0000000000000000000000000000000000000abc"
    endpoints:
      markets: https://example.org/markets
      tokens: https://example.org/tokens
    ignore_addresses:
      - "0x0000000000000000000000000000000000000def"
distribution:
  daily_budget: "1000000"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultPageSize, cfg.Ingestion.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.Ingestion.Window)
	assert.Equal(t, 50, cfg.Ingestion.MaxInFlight)
	assert.Equal(t, 3, cfg.Ingestion.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Ingestion.BaseDelay)
	assert.Equal(t, 2.0, cfg.Ingestion.Multiplier)

	assert.Equal(t, 0.25, cfg.Distribution.HoldingWeight)
	assert.Equal(t, 0.25, cfg.Distribution.VerifiedWeight)
	assert.Equal(t, 0.5, cfg.Distribution.LoyaltyWeight)
	assert.Equal(t, "1000000", cfg.Distribution.Budget().String())

	require.Len(t, cfg.Chains, 1)
	assert.Equal(t, int32(18), cfg.Chains[0].TokenDecimals)
}

func TestChain_Lookup(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	ch, err := cfg.Chain(100)
	require.NoError(t, err)
	assert.Equal(t, "gnosis", ch.Name)
	assert.Equal(t, common.HexToAddress("0xaf204776c7245bf4147c2612bf6e5972ee483701"), ch.Collateral())

	loyalty, ok := ch.Loyalty()
	assert.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xabc"), loyalty)
	assert.True(t, ch.Ignored()[common.HexToAddress("0xdef")])

	_, err = cfg.Chain(1)
	assert.True(t, errors.Is(err, ErrUnsupportedChain))
}

func TestChain_MissingEndpoint(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	ch, _ := cfg.Chain(100)
	url, err := ch.Endpoint(EndpointMarkets)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/markets", url)

	_, err = ch.Endpoint(EndpointPositions)
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no chains", "distribution:\n  daily_budget: \"1\"\n"},
		{"bad collateral", `
chains:
  - id: 1
    name: x
    collateral_token: nope
distribution:
  daily_budget: "1"
`},
		{"weights do not sum", `
chains:
  - id: 1
    name: x
    collateral_token: "0x0000000000000000000000000000000000000001"
distribution:
  daily_budget: "1"
  holding_weight: 0.5
  verified_weight: 0.1
  loyalty_weight: 0.1
`},
		{"duplicate chain", `
chains:
  - id: 1
    name: x
    collateral_token: "0x0000000000000000000000000000000000000001"
  - id: 1
    name: y
    collateral_token: "0x0000000000000000000000000000000000000001"
distribution:
  daily_budget: "1"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSelect(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	all, err := cfg.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	byName, err := cfg.Select([]string{"Gnosis"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), byName[0].ID)

	byID, err := cfg.Select([]string{"100"})
	require.NoError(t, err)
	assert.Equal(t, "gnosis", byID[0].Name)

	_, err = cfg.Select([]string{"mainnet"})
	assert.True(t, errors.Is(err, ErrUnsupportedChain))

	_, err = cfg.Select([]string{"1"})
	assert.True(t, errors.Is(err, ErrUnsupportedChain))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nAIRDROP_TEST_NEW=fresh\nAIRDROP_TEST_SET = ignored\nnot a pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("AIRDROP_TEST_SET", "kept")
	t.Setenv("AIRDROP_TEST_NEW", "")

	LoadEnvFile(path)
	assert.Equal(t, "fresh", os.Getenv("AIRDROP_TEST_NEW"))
	assert.Equal(t, "kept", os.Getenv("AIRDROP_TEST_SET"))

	LoadEnvFile(filepath.Join(t.TempDir(), "missing"))
}
