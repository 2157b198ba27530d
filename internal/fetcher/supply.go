package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const erc20ABIJSON = `[{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("failed to parse ERC-20 ABI: " + err.Error())
	}
	erc20ABI = parsed
}

// SupplyOptions parameterise the on-chain supply fetcher.
type SupplyOptions struct {
	RPCURL       string
	TokenAddress string
	Decimals     int32
	Timeout      time.Duration
}

// Supply reads the circulating supply from the token contract via RPC.
type Supply struct {
	opts      SupplyOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewSupply builds a new on-chain supply fetcher.
func NewSupply(opts SupplyOptions, logger zerolog.Logger) *Supply {
	return &Supply{opts: opts, logger: logger.With().Str("component", "supply_fetcher").Logger()}
}

// FetchSupply retrieves totalSupply scaled to UI units.
func (s *Supply) FetchSupply(ctx context.Context) (decimal.Decimal, error) {
	if s.opts.RPCURL == "" {
		return decimal.Decimal{}, errors.New("ethereum rpc url not configured")
	}
	if s.opts.TokenAddress == "" {
		return decimal.Decimal{}, errors.New("token contract address not configured")
	}

	timeout := s.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := s.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("dial ethereum rpc: %w", ErrUnavailable)
	}

	addr := common.HexToAddress(s.opts.TokenAddress)

	payload, err := erc20ABI.Pack("totalSupply")
	if err != nil {
		return decimal.Decimal{}, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("totalSupply call: %w", ErrUnavailable)
	}

	outputs, err := erc20ABI.Unpack("totalSupply", res)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode totalSupply output: %w", ErrUnavailable)
	}
	if len(outputs) != 1 {
		return decimal.Decimal{}, fmt.Errorf("unexpected totalSupply response: %w", ErrUnavailable)
	}

	raw, ok := outputs[0].(*big.Int)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unexpected totalSupply type: %w", ErrUnavailable)
	}

	return decimal.NewFromBigInt(raw, -s.opts.Decimals), nil
}

func (s *Supply) getClient(ctx context.Context) (*ethclient.Client, error) {
	s.clientMux.Lock()
	defer s.clientMux.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	client, err := ethclient.DialContext(ctx, s.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

var _ SupplyFetcher = (*Supply)(nil)
