// Package hyperplane implements quoting and swap-instruction building for
// Hyperplane constant-function AMM pools.
package hyperplane

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// SwapPoolDecodedSize is the prefix of the pool account this package reads.
	SwapPoolDecodedSize = 480
	// SwapPoolAccountSize is the allocated account size, including padding.
	SwapPoolAccountSize = SwapPoolDecodedSize + 8*56

	TokenAMintOffset = 8 + 32 + 32 + 8 + 32*3
	TokenBMintOffset = TokenAMintOffset + 32
)

// Fees holds the fee fractions stored in the pool account.
type Fees struct {
	TradeFeeNumerator           uint64
	TradeFeeDenominator         uint64
	OwnerTradeFeeNumerator      uint64
	OwnerTradeFeeDenominator    uint64
	OwnerWithdrawFeeNumerator   uint64
	OwnerWithdrawFeeDenominator uint64
	HostFeeNumerator            uint64
	HostFeeDenominator          uint64
}

// SwapPool mirrors the on-chain pool account up to its padding.
type SwapPool struct {
	Discriminator         [8]uint8
	Admin                 solana.PublicKey
	PoolAuthority         solana.PublicKey
	PoolAuthorityBumpSeed uint64
	TokenAVault           solana.PublicKey
	TokenBVault           solana.PublicKey
	PoolTokenMint         solana.PublicKey
	TokenAMint            solana.PublicKey
	TokenBMint            solana.PublicKey
	TokenAFeesVault       solana.PublicKey
	TokenBFeesVault       solana.PublicKey
	Fees                  Fees
	CurveType             uint64
	SwapCurve             solana.PublicKey
	TokenAProgram         solana.PublicKey
	TokenBProgram         solana.PublicKey
	WithdrawalsOnly       uint64
}

func (p *SwapPool) Span() uint64 {
	return SwapPoolAccountSize
}

// Offset returns the byte offset of a field usable in memcmp filters.
func (p *SwapPool) Offset(field string) uint64 {
	switch field {
	case "TokenAMint":
		return TokenAMintOffset
	case "TokenBMint":
		return TokenBMintOffset
	default:
		return 0
	}
}

// DecodeSwapPool validates the account discriminator and copies the fixed
// layout out of data. It does not interpret fees or curve parameters.
func DecodeSwapPool(address solana.PublicKey, data []byte) (SwapPool, error) {
	var pool SwapPool
	if len(data) < SwapPoolDecodedSize {
		return pool, &SchemaError{
			Account: address,
			Reason:  fmt.Sprintf("data too short: expected at least %d bytes, got %d", SwapPoolDecodedSize, len(data)),
		}
	}
	if !bytes.Equal(data[:8], SwapPoolDiscriminator[:]) {
		return pool, &SchemaError{Account: address, Reason: "account discriminator is not SwapPool"}
	}
	if err := bin.NewBorshDecoder(data[:SwapPoolDecodedSize]).Decode(&pool); err != nil {
		return SwapPool{}, &SchemaError{Account: address, Reason: "decode failed", Err: err}
	}
	return pool, nil
}

// PoolConfig is everything about a pool that is fixed at construction time.
type PoolConfig struct {
	Address      solana.PublicKey
	ProgramID    solana.PublicKey
	Pool         SwapPool
	CurveSeed    string
	CurveAddress solana.PublicKey
}

func NewPoolConfig(address, programID solana.PublicKey, pool SwapPool) (PoolConfig, error) {
	curve, err := DeriveCurveAddress(address, programID)
	if err != nil {
		return PoolConfig{}, err
	}
	return PoolConfig{
		Address:      address,
		ProgramID:    programID,
		Pool:         pool,
		CurveSeed:    CurveSeed,
		CurveAddress: curve,
	}, nil
}

// DeriveCurveAddress finds the curve-parameter account of a pool.
func DeriveCurveAddress(pool, programID solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte(CurveSeed),
		pool.Bytes(),
	}
	curve, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find curve PDA: %w", err)
	}
	return curve, nil
}

// tokenProgramOrDefault maps the zero sentinel to the original SPL Token program.
func tokenProgramOrDefault(program solana.PublicKey) solana.PublicKey {
	if program.IsZero() {
		return TokenProgramID
	}
	return program
}
