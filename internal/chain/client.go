package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/validate"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Compile-time checks: *Client is both the wallet and the contract client.
var (
	_ Wallet         = (*Client)(nil)
	_ ContractClient = (*Client)(nil)
)

// backend is the subset of ethclient.Client the payment client needs.
type backend interface {
	bind.ContractBackend
	receiptFetcher
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client signs payment-contract calls with a local key and talks to a node
// over JSON-RPC.
type Client struct {
	backend      backend
	closer       func()
	contract     *bind.BoundContract
	contractAddr common.Address
	key          *ecdsa.PrivateKey
	from         common.Address
	chainID      *big.Int
	pollPeriod   time.Duration
}

func NewClient(ctx context.Context, cfg models.ChainConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url cannot be empty")
	}

	httpClient, err := newRPCHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to dial rpc endpoint: %w", err)
	}

	eth := ethclient.NewClient(rpcClient)
	c, err := newClient(eth, cfg)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.closer = eth.Close

	zap.L().Info("Chain client initialized",
		zap.String("network", cfg.Network),
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("contract", c.contractAddr.Hex()),
		zap.Bool("signer", c.key != nil))

	return c, nil
}

func newClient(b backend, cfg models.ChainConfig) (*Client, error) {
	if !validate.IsValidAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid payment contract address: %q", cfg.ContractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(paymentABI))
	if err != nil {
		return nil, fmt.Errorf("unable to parse payment contract abi: %w", err)
	}

	contractAddr := common.HexToAddress(cfg.ContractAddress)
	c := &Client{
		backend:      b,
		contract:     bind.NewBoundContract(contractAddr, parsed, b, b, b),
		contractAddr: contractAddr,
		chainID:      big.NewInt(cfg.ChainID),
		pollPeriod:   cfg.ReceiptPollPeriod,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid payer private key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) ContractAddress() string {
	return c.contractAddr.Hex()
}

// Address returns the payer account.
func (c *Client) Address(_ context.Context) (string, error) {
	if c.key == nil {
		return "", ErrNoSigner
	}
	return c.from.Hex(), nil
}

func (c *Client) ChainID(ctx context.Context) (int64, error) {
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to get chain id: %w", err)
	}
	return id.Int64(), nil
}

func (c *Client) RequireNetwork(ctx context.Context, chainID int64) error {
	actual, err := c.ChainID(ctx)
	if err != nil {
		return err
	}
	if actual != chainID {
		return fmt.Errorf("%w: expected chain %d, connected to %d", ErrNetworkMismatch, chainID, actual)
	}
	return nil
}

func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !validate.IsValidAddress(address) {
		return nil, fmt.Errorf("invalid address: %q", address)
	}
	balance, err := c.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to get balance: %w", err)
	}
	return balance, nil
}

// ContractDeployed reports whether code exists at the payment contract address.
func (c *Client) ContractDeployed(ctx context.Context) (bool, error) {
	code, err := c.backend.CodeAt(ctx, c.contractAddr, nil)
	if err != nil {
		return false, fmt.Errorf("unable to read contract code: %w", err)
	}
	return len(code) > 0, nil
}

func (c *Client) CreatePayment(ctx context.Context, recipient string, value *big.Int) (PendingTx, error) {
	if !validate.IsValidAddress(recipient) {
		return nil, fmt.Errorf("invalid recipient: %q", recipient)
	}
	return c.transact(ctx, value, methodCreatePayment, common.HexToAddress(recipient))
}

func (c *Client) BatchPayment(ctx context.Context, recipients []string, amounts []*big.Int, total *big.Int) (PendingTx, error) {
	if len(recipients) == 0 || len(recipients) != len(amounts) {
		return nil, fmt.Errorf("batch needs matching recipients and amounts, got %d and %d", len(recipients), len(amounts))
	}

	addrs := make([]common.Address, len(recipients))
	sum := new(big.Int)
	for i, r := range recipients {
		if !validate.IsValidAddress(r) {
			return nil, fmt.Errorf("invalid recipient at index %d: %q", i, r)
		}
		addrs[i] = common.HexToAddress(r)
		sum.Add(sum, amounts[i])
	}
	if total == nil || sum.Cmp(total) != 0 {
		return nil, fmt.Errorf("batch total %v does not match sum of amounts %s", total, sum)
	}

	return c.transact(ctx, total, methodBatchPayment, addrs, amounts)
}

func (c *Client) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (PendingTx, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("unable to create transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := c.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", method, err)
	}

	zap.L().Info("Payment transaction broadcast",
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("from", c.from.Hex()),
		zap.String("value_wei", value.String()))

	return newPendingTx(tx.Hash(), c.backend, c.pollPeriod), nil
}
