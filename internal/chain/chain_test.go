package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"payment-settlement-go/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// well-known development key
	testKey      = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddr  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

type fakeBackend struct {
	bind.ContractBackend

	mu       sync.Mutex
	chainID  int64
	balance  *big.Int
	receipts []*types.Receipt // returned in order; nil means not yet mined
	calls    int
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.receipts) || f.receipts[i] == nil {
		return nil, ethereum.NotFound
	}
	return f.receipts[i], nil
}

func testChainConfig() models.ChainConfig {
	return models.ChainConfig{
		ChainID:           31337,
		ContractAddress:   testContract,
		PrivateKey:        testKey,
		ReceiptPollPeriod: time.Millisecond,
	}
}

func TestPaymentABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(paymentABI))
	require.NoError(t, err)

	assert.True(t, parsed.Methods[methodCreatePayment].IsPayable())
	assert.True(t, parsed.Methods[methodBatchPayment].IsPayable())

	_, err = parsed.Pack(methodCreatePayment, common.HexToAddress(testKeyAddr))
	require.NoError(t, err)
	_, err = parsed.Pack(methodBatchPayment,
		[]common.Address{common.HexToAddress(testKeyAddr)},
		[]*big.Int{big.NewInt(1)})
	require.NoError(t, err)
}

func TestNewClient_DerivesPayer(t *testing.T) {
	c, err := newClient(&fakeBackend{chainID: 31337}, testChainConfig())
	require.NoError(t, err)

	addr, err := c.Address(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKeyAddr, addr)
	assert.Equal(t, testContract, c.ContractAddress())
}

func TestNewClient_Rejects(t *testing.T) {
	cfg := testChainConfig()
	cfg.ContractAddress = "0x1234"
	_, err := newClient(&fakeBackend{}, cfg)
	assert.Error(t, err)

	cfg = testChainConfig()
	cfg.PrivateKey = "not-a-key"
	_, err = newClient(&fakeBackend{}, cfg)
	assert.Error(t, err)
}

func TestClient_NoSigner(t *testing.T) {
	cfg := testChainConfig()
	cfg.PrivateKey = ""
	c, err := newClient(&fakeBackend{}, cfg)
	require.NoError(t, err)

	_, err = c.Address(context.Background())
	assert.ErrorIs(t, err, ErrNoSigner)
	_, err = c.CreatePayment(context.Background(), testKeyAddr, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestClient_RequireNetwork(t *testing.T) {
	c, err := newClient(&fakeBackend{chainID: 1}, testChainConfig())
	require.NoError(t, err)

	assert.NoError(t, c.RequireNetwork(context.Background(), 1))
	assert.ErrorIs(t, c.RequireNetwork(context.Background(), 11155111), ErrNetworkMismatch)
}

func TestClient_Balance(t *testing.T) {
	c, err := newClient(&fakeBackend{balance: big.NewInt(42)}, testChainConfig())
	require.NoError(t, err)

	bal, err := c.Balance(context.Background(), testKeyAddr)
	require.NoError(t, err)
	assert.Equal(t, "42", bal.String())

	_, err = c.Balance(context.Background(), "0xnope")
	assert.Error(t, err)
}

func TestClient_BatchValidation(t *testing.T) {
	c, err := newClient(&fakeBackend{}, testChainConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.BatchPayment(ctx, nil, nil, big.NewInt(0))
	assert.Error(t, err)

	_, err = c.BatchPayment(ctx, []string{testKeyAddr}, []*big.Int{big.NewInt(1), big.NewInt(2)}, big.NewInt(3))
	assert.Error(t, err)

	_, err = c.BatchPayment(ctx, []string{testKeyAddr, testContract}, []*big.Int{big.NewInt(1), big.NewInt(2)}, big.NewInt(4))
	assert.Error(t, err, "total must equal the sum of amounts")
}

func TestPendingTx_WaitUntilMined(t *testing.T) {
	hash := common.HexToHash("0x01")
	backend := &fakeBackend{receipts: []*types.Receipt{nil, nil, {
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(7),
	}}}

	receipt, err := newPendingTx(hash, backend, time.Millisecond).Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(7), receipt.BlockNumber)
	assert.Equal(t, hash.Hex(), receipt.TxHash)
	assert.Equal(t, 3, backend.calls)
}

func TestPendingTx_Reverted(t *testing.T) {
	hash := common.HexToHash("0x02")
	backend := &fakeBackend{receipts: []*types.Receipt{{Status: types.ReceiptStatusFailed, TxHash: hash, BlockNumber: big.NewInt(9)}}}

	receipt, err := newPendingTx(hash, backend, time.Millisecond).Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, receipt.Succeeded())
}

func TestPendingTx_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newPendingTx(common.HexToHash("0x03"), &fakeBackend{}, time.Millisecond).Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
