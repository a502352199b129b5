package chain

import (
	"context"
	"errors"
	"math/big"
)

var (
	ErrNetworkMismatch = errors.New("wallet is connected to a different network")
	ErrNoSigner        = errors.New("no payer key configured")
)

// Receipt is the mined outcome of a payment transaction.
type Receipt struct {
	TxHash      string
	Status      uint64
	BlockNumber uint64
	GasUsed     uint64
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == receiptStatusSuccessful
}

// PendingTx is a broadcast transaction whose hash is known before it is mined.
type PendingTx interface {
	Hash() string
	// Wait blocks until the transaction is mined or ctx is done. A reverted
	// transaction is returned as a receipt, not as an error.
	Wait(ctx context.Context) (*Receipt, error)
}

// ContractClient submits value-bearing calls to the payment contract.
type ContractClient interface {
	CreatePayment(ctx context.Context, recipient string, value *big.Int) (PendingTx, error)
	BatchPayment(ctx context.Context, recipients []string, amounts []*big.Int, total *big.Int) (PendingTx, error)
}

// Wallet exposes the payer's account and network.
type Wallet interface {
	Address(ctx context.Context) (string, error)
	ChainID(ctx context.Context) (int64, error)
	RequireNetwork(ctx context.Context, chainID int64) error
	Balance(ctx context.Context, address string) (*big.Int, error)
}
