package pkg

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// ProtocolName represents the string name of AMM protocol
type ProtocolName string

const (
	ProtocolNameHyperplane ProtocolName = "hyperplane"
)

// AccountMap maps an account address to its latest raw data.
// Fetchers drop the addresses they could not load.
type AccountMap map[solana.PublicKey][]byte

// SwapMode selects which side of a trade is fixed.
type SwapMode uint8

const (
	ExactIn SwapMode = iota
	ExactOut
)

func (m SwapMode) String() string {
	switch m {
	case ExactIn:
		return "ExactIn"
	case ExactOut:
		return "ExactOut"
	default:
		return "Unknown"
	}
}

type QuoteParams struct {
	InputMint solana.PublicKey
	Amount    uint64
	SwapMode  SwapMode
}

// Quote is the priced result of a single trade against one pool snapshot.
type Quote struct {
	InAmount  uint64
	OutAmount uint64
	// Curve fee (trade + owner) charged in the input mint.
	FeeAmount uint64
	FeeMint   solana.PublicKey
	FeePct    float64
	// Token-2022 transfer fees withheld before and after the curve.
	TransferFeeIn  uint64
	TransferFeeOut uint64
	CurveOutAmount uint64
}

type SwapParams struct {
	SourceMint              solana.PublicKey
	DestinationMint         solana.PublicKey
	SourceTokenAccount      solana.PublicKey
	DestinationTokenAccount solana.PublicKey
	TransferAuthority       solana.PublicKey
	// Zero value means no host fee account.
	HostFeeAccount   solana.PublicKey
	InAmount         uint64
	MinimumAmountOut uint64
}

// Amm is what a router needs from a pool adapter. Update is the only writer;
// everything else is safe for concurrent use.
type Amm interface {
	ProtocolName() ProtocolName
	ProgramID() solana.PublicKey
	Key() solana.PublicKey
	Label() string
	GetReserveMints() []solana.PublicKey
	GetAccountsToTrack() []solana.PublicKey
	Update(accounts AccountMap) error
	Quote(params QuoteParams) (Quote, error)
	BuildSwapInstruction(params SwapParams) (solana.Instruction, error)
}

type Protocol interface {
	ProtocolName() ProtocolName
	FetchPoolsByPair(ctx context.Context, baseMint, quoteMint solana.PublicKey) ([]Amm, error)
	FetchPoolByID(ctx context.Context, poolID solana.PublicKey) (Amm, error)
	Refresh(ctx context.Context, amm Amm) error
}
