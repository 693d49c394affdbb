// Package hyperplanetest builds raw account bytes for Hyperplane pools so
// tests can drive adapters without an RPC node.
package hyperplanetest

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg"
	"github.com/yimingwow/hyperroute/pkg/anchor"
)

const (
	poolAccountSize  = 928
	tokenAccountSize = 165
	mintBaseSize     = 82
	clockSize        = 40

	CurveConstantProduct = 1
	CurveConstantPrice   = 2
	CurveOffset          = 3
	CurveStable          = 4
)

var ProgramID = solana.MustPublicKeyFromBase58("SwapsVeCiPHMUAtzQWZw7RjsKjgCjhwU55QGu4U1Szw")

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

// Pool is the writer side of the SwapPool account layout.
type Pool struct {
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

// NewPool returns a fee-free constant product pool with random keys and
// zero token programs.
func NewPool() Pool {
	return Pool{
		Admin:                 newKey(),
		PoolAuthority:         newKey(),
		PoolAuthorityBumpSeed: 254,
		TokenAVault:           newKey(),
		TokenBVault:           newKey(),
		PoolTokenMint:         newKey(),
		TokenAMint:            newKey(),
		TokenBMint:            newKey(),
		TokenAFeesVault:       newKey(),
		TokenBFeesVault:       newKey(),
		Fees: Fees{
			TradeFeeDenominator:         10_000,
			OwnerTradeFeeDenominator:    10_000,
			OwnerWithdrawFeeDenominator: 10_000,
			HostFeeDenominator:          10_000,
		},
		CurveType: CurveConstantProduct,
		SwapCurve: newKey(),
	}
}

// Bytes encodes the pool as an allocated account, padding included.
func (p Pool) Bytes() []byte {
	buf := new(bytes.Buffer)
	disc := anchor.AccountDiscriminator("SwapPool")
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(p); err != nil {
		panic(err)
	}
	out := make([]byte, poolAccountSize)
	copy(out, buf.Bytes())
	return out
}

// CurveAddress derives the curve account of poolAddress under programID.
func CurveAddress(poolAddress, programID solana.PublicKey) solana.PublicKey {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("curve"), poolAddress.Bytes()}, programID)
	if err != nil {
		panic(err)
	}
	return addr
}

func TokenAccount(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, tokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1 // initialized
	return data
}

func curveAccount(name string, params ...uint64) []byte {
	disc := anchor.AccountDiscriminator(name)
	data := make([]byte, 8+8*len(params))
	copy(data, disc[:])
	for i, v := range params {
		binary.LittleEndian.PutUint64(data[8+8*i:], v)
	}
	return data
}

func ConstantProductCurve() []byte {
	return curveAccount("ConstantProductCurve")
}

func ConstantPriceCurve(tokenBPrice uint64) []byte {
	return curveAccount("ConstantPriceCurve", tokenBPrice)
}

func OffsetCurve(tokenBOffset uint64) []byte {
	return curveAccount("OffsetCurve", tokenBOffset)
}

func StableCurve(amp, tokenAFactor, tokenBFactor uint64) []byte {
	return curveAccount("StableCurve", amp, tokenAFactor, tokenBFactor)
}

func Clock(slot, epoch uint64) []byte {
	data := make([]byte, clockSize)
	binary.LittleEndian.PutUint64(data[0:8], slot)
	binary.LittleEndian.PutUint64(data[16:24], epoch)
	binary.LittleEndian.PutUint64(data[24:32], epoch+1)
	return data
}

type TransferFee struct {
	Epoch       uint64
	MaximumFee  uint64
	BasisPoints uint16
}

// Mint returns a mint account without extensions.
func Mint(decimals uint8) []byte {
	data := make([]byte, mintBaseSize)
	binary.LittleEndian.PutUint64(data[36:44], 1_000_000_000_000)
	data[44] = decimals
	data[45] = 1 // initialized
	return data
}

// MintWithTransferFee returns a Token-2022 mint carrying the TransferFeeConfig
// extension.
func MintWithTransferFee(decimals uint8, older, newer TransferFee) []byte {
	const (
		extensionTransferFeeConfig = 1
		transferFeeConfigLength    = 108
	)
	data := make([]byte, tokenAccountSize+1+4+transferFeeConfigLength)
	copy(data, Mint(decimals))
	data[tokenAccountSize] = 1 // account type: mint

	tlv := data[tokenAccountSize+1:]
	binary.LittleEndian.PutUint16(tlv[0:2], extensionTransferFeeConfig)
	binary.LittleEndian.PutUint16(tlv[2:4], transferFeeConfigLength)
	value := tlv[4:]
	copy(value[0:32], newKey().Bytes())
	copy(value[32:64], newKey().Bytes())
	putFee := func(b []byte, f TransferFee) {
		binary.LittleEndian.PutUint64(b[0:8], f.Epoch)
		binary.LittleEndian.PutUint64(b[8:16], f.MaximumFee)
		binary.LittleEndian.PutUint16(b[16:18], f.BasisPoints)
	}
	putFee(value[72:90], older)
	putFee(value[90:108], newer)
	return data
}

// Accounts is a full refresh batch for pool at address: both vaults, the
// curve account and the clock.
func Accounts(address, programID solana.PublicKey, pool Pool, amountA, amountB uint64, curve []byte, epoch uint64) pkg.AccountMap {
	return pkg.AccountMap{
		pool.TokenAVault:                 TokenAccount(pool.TokenAMint, pool.PoolAuthority, amountA),
		pool.TokenBVault:                 TokenAccount(pool.TokenBMint, pool.PoolAuthority, amountB),
		CurveAddress(address, programID): curve,
		solana.SysVarClockPubkey:         Clock(epoch*432_000, epoch),
	}
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}
