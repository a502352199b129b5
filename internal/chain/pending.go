package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	receiptStatusSuccessful = types.ReceiptStatusSuccessful
	defaultPollPeriod       = 2 * time.Second
)

type receiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type pendingTx struct {
	hash       common.Hash
	fetcher    receiptFetcher
	pollPeriod time.Duration
}

func newPendingTx(hash common.Hash, fetcher receiptFetcher, pollPeriod time.Duration) *pendingTx {
	if pollPeriod <= 0 {
		pollPeriod = defaultPollPeriod
	}
	return &pendingTx{hash: hash, fetcher: fetcher, pollPeriod: pollPeriod}
}

func (p *pendingTx) Hash() string {
	return p.hash.Hex()
}

// Wait polls for the receipt until it is available or ctx is done.
func (p *pendingTx) Wait(ctx context.Context) (*Receipt, error) {
	if receipt, err := p.poll(ctx); receipt != nil || err != nil {
		return receipt, err
	}

	ticker := time.NewTicker(p.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			receipt, err := p.poll(ctx)
			if receipt != nil || err != nil {
				return receipt, err
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", p.hash.Hex(), ctx.Err())
		}
	}
}

// poll returns (nil, nil) while the transaction is not yet mined.
func (p *pendingTx) poll(ctx context.Context) (*Receipt, error) {
	r, err := p.fetcher.TransactionReceipt(ctx, p.hash)
	if errors.Is(err, ethereum.NotFound) {
		zap.L().Debug("Transaction not yet mined", zap.String("tx_hash", p.hash.Hex()))
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for receipt of %s: %w", p.hash.Hex(), ctx.Err())
		}
		// transient RPC failures are retried on the next tick
		zap.L().Warn("Receipt lookup failed", zap.String("tx_hash", p.hash.Hex()), zap.Error(err))
		return nil, nil
	}

	receipt := &Receipt{
		TxHash:  r.TxHash.Hex(),
		Status:  r.Status,
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		receipt.BlockNumber = r.BlockNumber.Uint64()
	}
	if receipt.TxHash == (common.Hash{}).Hex() {
		receipt.TxHash = p.hash.Hex()
	}
	return receipt, nil
}
