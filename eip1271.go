package siwe

import (
	"context"

	ethereum "github.com/ethereum/go-ethereum"
)

// CheckContractWalletSignature is the EIP-1271 extension point: it would call
// isValidSignature on the message address through caller. It always fails
// with NotImplemented.
func CheckContractWalletSignature(ctx context.Context, caller ethereum.ContractCaller, message *Message, signature string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, &Error{Kind: NotImplemented, Reason: "siwe does not yet support EIP-1271 method signature verification"}
}
