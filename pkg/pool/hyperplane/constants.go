package hyperplane

import (
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg/anchor"
)

var (
	// HyperplaneProgramID is the default program identity. Adapters take the
	// program id as an option so forks and test programs can coexist.
	HyperplaneProgramID = solana.MustPublicKeyFromBase58("SwapsVeCiPHMUAtzQWZw7RjsKjgCjhwU55QGu4U1Szw")

	// TokenProgramID is substituted for a zero token program in the pool
	// account; pools created before per-side token programs leave it unset.
	TokenProgramID = solana.TokenProgramID

	ClockSysvarID = solana.SysVarClockPubkey
)

const (
	CurveSeed = "curve"
	// Label is the name aggregators list these pools under.
	Label = "Rarefish"

	// SPL token account: mint(32) owner(32) amount(8) ...
	TokenAccountAmountOffset = 64
	TokenAccountSize         = 165

	FeeBasisPointsDenominator = 10_000

	// SwapAccountCount is the number of swap accounts without the optional
	// curve account.
	SwapAccountCount = 13
)

var (
	SwapPoolDiscriminator = anchor.AccountDiscriminator("SwapPool")
	SwapDiscriminator     = anchor.InstructionDiscriminator("swap")
)
