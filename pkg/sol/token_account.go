package sol

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	WSOL               = solana.SolMint
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// createIdempotent is the associated token account program instruction
// index that succeeds when the account already exists.
const createIdempotent = 1

// TokenAccount is a user's token account for one mint. Create is set when
// the account does not exist yet and must be created ahead of the swap.
type TokenAccount struct {
	Address solana.PublicKey
	Create  solana.Instruction
}

// FindAssociatedTokenAddress derives the ATA of owner for mint under the
// given token program.
func FindAssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	if tokenProgram.IsZero() || tokenProgram.Equals(solana.TokenProgramID) {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
		return ata, err
	}
	ata, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	return ata, err
}

// ResolveTokenAccount returns the first token account owner holds for mint,
// or its associated token address together with the instruction creating it.
func (c *Client) ResolveTokenAccount(ctx context.Context, owner, mint, tokenProgram solana.PublicKey) (TokenAccount, error) {
	acc, err := c.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: mint.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Encoding: "jsonParsed",
		},
	)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("failed to get token accounts for mint %s: %w", mint, err)
	}
	if len(acc.Value) > 0 {
		return TokenAccount{Address: acc.Value[0].Pubkey}, nil
	}

	ata, err := FindAssociatedTokenAddress(owner, mint, tokenProgram)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("failed to find associated token address: %w", err)
	}
	create, err := createAssociatedTokenAccount(owner, ata, mint, tokenProgram)
	if err != nil {
		return TokenAccount{}, err
	}
	return TokenAccount{Address: ata, Create: create}, nil
}

func createAssociatedTokenAccount(owner, ata, mint, tokenProgram solana.PublicKey) (solana.Instruction, error) {
	if tokenProgram.IsZero() || tokenProgram.Equals(solana.TokenProgramID) {
		inst, err := associatedtokenaccount.NewCreateInstruction(owner, owner, mint).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build create ATA instruction: %w", err)
		}
		return inst, nil
	}
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(owner, true, true),
			solana.NewAccountMeta(ata, true, false),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(tokenProgram, false, false),
		},
		[]byte{createIdempotent},
	), nil
}

// WrapSolInstructions funds a WSOL token account with lamports and syncs its
// token balance.
func WrapSolInstructions(owner, wsolAccount solana.PublicKey, lamports uint64) ([]solana.Instruction, error) {
	transferInst, err := system.NewTransferInstruction(lamports, owner, wsolAccount).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %w", err)
	}
	syncNativeInst, err := token.NewSyncNativeInstruction(wsolAccount).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build sync native instruction: %w", err)
	}
	return []solana.Instruction{transferInst, syncNativeInst}, nil
}

// UnwrapSolInstruction closes a WSOL token account back into owner.
func UnwrapSolInstruction(owner, wsolAccount solana.PublicKey) (solana.Instruction, error) {
	closeInst, err := token.NewCloseAccountInstruction(
		wsolAccount,
		owner,
		owner,
		[]solana.PublicKey{},
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build close account instruction: %w", err)
	}
	return closeInst, nil
}

// GetTokenBalance returns the raw amount held by a token account.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := c.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get token account balance: %w", err)
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount: %w", err)
	}
	return amount, nil
}
