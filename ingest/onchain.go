package ingest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/helioswap/routegraph/graph"
)

// Minimal ABI fragments for UniswapV2-style factory and pair contracts.
const (
	factoryABIJSON = `[{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"stateMutability":"view","type":"function"}]`

	pairABIJSON = `[{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

	erc20ABIJSON = `[{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}]`
)

// OnchainFetcher implements the on-demand ingestion strategy against an
// EVM JSON-RPC endpoint. Slower and more accurate than the bulk path;
// the builder uses it to re-verify the pairs that matter most.
type OnchainFetcher struct {
	client      *ethclient.Client
	chainID     uint64
	dex         string
	feeBps      uint32
	oracle      PriceOracle
	callTimeout time.Duration

	factoryABI abi.ABI
	pairABI    abi.ABI
	erc20ABI   abi.ABI
}

// NewOnchainFetcher creates an on-demand fetcher over a connected RPC
// client. The oracle may be nil; valuation then always degrades to 0.
func NewOnchainFetcher(client *ethclient.Client, chainID uint64, dex string, feeBps uint32, oracle PriceOracle) (*OnchainFetcher, error) {
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	return &OnchainFetcher{
		client:      client,
		chainID:     chainID,
		dex:         dex,
		feeBps:      feeBps,
		oracle:      oracle,
		callTimeout: 8 * time.Second,
		factoryABI:  factoryABI,
		pairABI:     pairABI,
		erc20ABI:    erc20ABI,
	}, nil
}

// SupportsChain reports whether this fetcher serves the chain.
func (f *OnchainFetcher) SupportsChain(chainID uint64) bool {
	return chainID == f.chainID
}

// FetchBulk is not served by the RPC strategy.
func (f *OnchainFetcher) FetchBulk(ctx context.Context, factory string, limit int) (BulkResult, error) {
	return BulkResult{}, ErrNotSupported
}

// FetchOnDemand resolves whether a pool exists for the pair on the
// factory and, if so, reads its current reserves. Returns (nil, nil)
// when the factory knows no such pool. USD valuation is best-effort:
// a failed price lookup records liquidity 0 tagged as unpriced.
func (f *OnchainFetcher) FetchOnDemand(ctx context.Context, factory, tokenA, tokenB string) (*graph.PairEdge, error) {
	canonA, err := graph.CanonicalAddress(tokenA)
	if err != nil {
		return nil, err
	}
	canonB, err := graph.CanonicalAddress(tokenB)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()
	opts := &bind.CallOpts{Context: ctx}

	factoryContract := f.bound(factory, f.factoryABI)
	var pairOut []any
	err = factoryContract.Call(opts, &pairOut, "getPair", common.HexToAddress(canonA), common.HexToAddress(canonB))
	if err != nil {
		return nil, fmt.Errorf("getPair call failed: %w", err)
	}
	pairAddr := *abi.ConvertType(pairOut[0], new(common.Address)).(*common.Address)
	if pairAddr == (common.Address{}) {
		// Factory reports no pool for this pair.
		return nil, nil
	}

	pairContract := f.bound(pairAddr.Hex(), f.pairABI)

	var token0Out []any
	if err := pairContract.Call(opts, &token0Out, "token0"); err != nil {
		return nil, fmt.Errorf("token0 call failed: %w", err)
	}
	token0 := strings.ToLower(abi.ConvertType(token0Out[0], new(common.Address)).(*common.Address).Hex())

	var reservesOut []any
	if err := pairContract.Call(opts, &reservesOut, "getReserves"); err != nil {
		return nil, fmt.Errorf("getReserves call failed: %w", err)
	}
	reserve0 := abi.ConvertType(reservesOut[0], new(big.Int)).(*big.Int)
	reserve1 := abi.ConvertType(reservesOut[1], new(big.Int)).(*big.Int)

	// Map reserves onto the sorted edge orientation.
	sortedA, sortedB := graph.SortAddresses(canonA, canonB)
	reserveA, reserveB := reserve0, reserve1
	if token0 != sortedA {
		reserveA, reserveB = reserve1, reserve0
	}

	decimalsA := f.tokenDecimals(opts, sortedA)
	decimalsB := f.tokenDecimals(opts, sortedB)
	humanA := decimal.NewFromBigInt(reserveA, -int32(decimalsA))
	humanB := decimal.NewFromBigInt(reserveB, -int32(decimalsB))

	liquidity, source := f.valueReserves(ctx, sortedA, sortedB, humanA, humanB)

	return &graph.PairEdge{
		ID:              graph.EdgeID(f.chainID, f.dex, sortedA, sortedB),
		TokenA:          sortedA,
		TokenB:          sortedB,
		ChainID:         f.chainID,
		DEX:             f.dex,
		Factory:         strings.ToLower(factory),
		PoolAddress:     strings.ToLower(pairAddr.Hex()),
		LiquidityUSD:    liquidity,
		LiquiditySource: source,
		ReserveA:        humanA,
		ReserveB:        humanB,
		FeeBps:          f.feeBps,
		LastUpdated:     time.Now(),
	}, nil
}

// valueReserves estimates the pool's USD liquidity from both reserves.
// If either price lookup fails the whole valuation degrades to 0 with
// the unpriced tag; a structurally useful edge survives either way.
func (f *OnchainFetcher) valueReserves(ctx context.Context, tokenA, tokenB string, reserveA, reserveB decimal.Decimal) (float64, graph.LiquiditySource) {
	if f.oracle == nil {
		return 0, graph.LiquidityUnpriced
	}
	priceA, errA := f.oracle.USDPrice(ctx, tokenA, f.chainID)
	priceB, errB := f.oracle.USDPrice(ctx, tokenB, f.chainID)
	if errA != nil || errB != nil {
		log.Debug().
			Str("tokenA", tokenA).
			Str("tokenB", tokenB).
			AnErr("errA", errA).
			AnErr("errB", errB).
			Msg("Price lookup failed, recording unpriced liquidity")
		return 0, graph.LiquidityUnpriced
	}
	total := reserveA.Mul(priceA).Add(reserveB.Mul(priceB))
	liquidity, _ := total.Float64()
	return liquidity, graph.LiquidityPriced
}

// tokenDecimals reads the ERC-20 decimals, defaulting to 18 when the
// call fails (non-standard tokens, transient RPC errors).
func (f *OnchainFetcher) tokenDecimals(opts *bind.CallOpts, token string) uint8 {
	contract := f.bound(token, f.erc20ABI)
	var out []any
	if err := contract.Call(opts, &out, "decimals"); err != nil {
		return 18
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8)
}

func (f *OnchainFetcher) bound(address string, parsed abi.ABI) *bind.BoundContract {
	addr := common.HexToAddress(address)
	return bind.NewBoundContract(addr, parsed, f.client, f.client, f.client)
}
