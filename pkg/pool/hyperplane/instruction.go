package hyperplane

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg"
)

// SwapInstruction is the program's `swap` instruction with its accounts
// already resolved for one trade direction.
type SwapInstruction struct {
	AmountIn                uint64
	MinimumAmountOut        uint64
	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

var _ solana.Instruction = (*SwapInstruction)(nil)

func (inst *SwapInstruction) ProgramID() solana.PublicKey {
	return inst.programID
}

func (inst *SwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *SwapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.Write(SwapDiscriminator[:]); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(inst.AmountIn, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount in: %w", err)
	}
	if err := enc.WriteUint64(inst.MinimumAmountOut, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode minimum amount out: %w", err)
	}
	return buf.Bytes(), nil
}

// swapSide is the vault, fee vault and token program serving one mint.
type swapSide struct {
	mint         solana.PublicKey
	vault        solana.PublicKey
	feesVault    solana.PublicKey
	tokenProgram solana.PublicKey
}

func (a *Adapter) sides(sourceMint, destinationMint solana.PublicKey) (src, dst swapSide, err error) {
	p := a.config.Pool
	sideA := swapSide{p.TokenAMint, p.TokenAVault, p.TokenAFeesVault, tokenProgramOrDefault(p.TokenAProgram)}
	sideB := swapSide{p.TokenBMint, p.TokenBVault, p.TokenBFeesVault, tokenProgramOrDefault(p.TokenBProgram)}

	switch {
	case sourceMint.Equals(p.TokenAMint):
		src, dst = sideA, sideB
	case sourceMint.Equals(p.TokenBMint):
		src, dst = sideB, sideA
	default:
		return src, dst, &InvalidMintError{Mint: sourceMint}
	}
	if !destinationMint.Equals(dst.mint) {
		return src, dst, &InvalidMintError{Mint: destinationMint}
	}
	return src, dst, nil
}

// BuildSwapInstruction lays out the swap accounts in the order the program
// expects. Direction only changes which vaults and programs fill the
// source and destination slots.
func (a *Adapter) BuildSwapInstruction(params pkg.SwapParams) (solana.Instruction, error) {
	if a.current.Load() == nil {
		return nil, &StateError{Op: "build swap instruction", State: StateUninitialized}
	}
	src, dst, err := a.sides(params.SourceMint, params.DestinationMint)
	if err != nil {
		return nil, err
	}

	hostFee := params.HostFeeAccount
	if hostFee.IsZero() {
		// the program reads its own id in this slot as "no host fee account"
		hostFee = a.config.ProgramID
	}

	metas := make(solana.AccountMetaSlice, 0, SwapAccountCount+1)
	metas = append(metas,
		solana.NewAccountMeta(params.TransferAuthority, a.opts.WritableAuthority, true), // user_transfer_authority
		solana.NewAccountMeta(a.config.Address, true, false),                            // pool
	)
	if a.opts.IncludeCurveAccount {
		metas = append(metas, solana.NewAccountMeta(a.config.CurveAddress, false, false)) // swap_curve
	}
	metas = append(metas,
		solana.NewAccountMeta(a.config.Pool.PoolAuthority, false, false),   // pool_authority
		solana.NewAccountMeta(src.mint, false, false),                      // source_mint
		solana.NewAccountMeta(dst.mint, false, false),                      // destination_mint
		solana.NewAccountMeta(src.vault, true, false),                      // source_vault
		solana.NewAccountMeta(dst.vault, true, false),                      // destination_vault
		solana.NewAccountMeta(src.feesVault, true, false),                  // source_token_fees_vault
		solana.NewAccountMeta(params.SourceTokenAccount, true, false),      // source_user_ata
		solana.NewAccountMeta(params.DestinationTokenAccount, true, false), // destination_user_ata
		solana.NewAccountMeta(hostFee, true, false),                        // source_token_host_fees_account
		solana.NewAccountMeta(src.tokenProgram, false, false),              // source_token_program
		solana.NewAccountMeta(dst.tokenProgram, false, false),              // destination_token_program
	)

	return &SwapInstruction{
		AmountIn:         params.InAmount,
		MinimumAmountOut: params.MinimumAmountOut,
		programID:        a.config.ProgramID,
		AccountMetaSlice: metas,
	}, nil
}
