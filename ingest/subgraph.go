package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/helioswap/routegraph/graph"
)

// SubgraphFetcher implements the bulk ingestion strategy against a
// TheGraph-style GraphQL endpoint. One fetcher serves one DEX deployment
// on one chain.
type SubgraphFetcher struct {
	httpClient *http.Client
	url        string
	chainID    uint64
	dex        string
	feeBps     uint32
	maxRetries int
	retryDelay time.Duration
}

// NewSubgraphFetcher creates a bulk fetcher for one subgraph endpoint.
func NewSubgraphFetcher(url string, chainID uint64, dex string, feeBps uint32) *SubgraphFetcher {
	return &SubgraphFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		chainID:    chainID,
		dex:        dex,
		feeBps:     feeBps,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
	}
}

// SupportsChain reports whether this fetcher serves the chain.
func (f *SubgraphFetcher) SupportsChain(chainID uint64) bool {
	return chainID == f.chainID
}

const bulkPairsQuery = `query($factory: String!, $limit: Int!) {
  pairs(first: $limit, orderBy: reserveUSD, orderDirection: desc, where: {factory: $factory}) {
    id
    token0 { id symbol decimals }
    token1 { id symbol decimals }
    reserve0
    reserve1
    reserveUSD
  }
}`

type subgraphToken struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type subgraphPair struct {
	ID         string        `json:"id"`
	Token0     subgraphToken `json:"token0"`
	Token1     subgraphToken `json:"token1"`
	Reserve0   string        `json:"reserve0"`
	Reserve1   string        `json:"reserve1"`
	ReserveUSD string        `json:"reserveUSD"`
}

type subgraphResponse struct {
	Data struct {
		Pairs []subgraphPair `json:"pairs"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchBulk pulls up to limit highest-liquidity pairs for the factory.
// Individually malformed rows are skipped with a message; the valid
// subset is always returned.
func (f *SubgraphFetcher) FetchBulk(ctx context.Context, factory string, limit int) (BulkResult, error) {
	body, err := f.query(ctx, bulkPairsQuery, map[string]any{
		"factory": factory,
		"limit":   limit,
	})
	if err != nil {
		return BulkResult{}, fmt.Errorf("subgraph query failed: %w", err)
	}

	var resp subgraphResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return BulkResult{}, fmt.Errorf("failed to parse subgraph response: %w", err)
	}
	if len(resp.Errors) > 0 {
		return BulkResult{}, fmt.Errorf("subgraph error: %s", resp.Errors[0].Message)
	}

	result := BulkResult{}
	now := time.Now()
	for i, row := range resp.Data.Pairs {
		edge, tokens, err := f.normalizeRow(row, factory, now)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d (%s): %v", i, row.ID, err))
			continue
		}
		result.Pairs = append(result.Pairs, *edge)
		result.Tokens = append(result.Tokens, tokens...)
	}

	log.Debug().
		Str("dex", f.dex).
		Str("factory", factory).
		Int("pairs", len(result.Pairs)).
		Int("skipped", len(result.Skipped)).
		Msg("Bulk fetch complete")
	return result, nil
}

// normalizeRow converts one raw subgraph row into graph records.
func (f *SubgraphFetcher) normalizeRow(row subgraphPair, factory string, now time.Time) (*graph.PairEdge, []graph.TokenNode, error) {
	addr0, err := graph.CanonicalAddress(row.Token0.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("token0: %w", err)
	}
	addr1, err := graph.CanonicalAddress(row.Token1.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("token1: %w", err)
	}
	pool, err := graph.CanonicalAddress(row.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("pair address: %w", err)
	}

	reserve0, err := decimal.NewFromString(row.Reserve0)
	if err != nil {
		return nil, nil, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := decimal.NewFromString(row.Reserve1)
	if err != nil {
		return nil, nil, fmt.Errorf("reserve1: %w", err)
	}
	reserveUSD, err := decimal.NewFromString(row.ReserveUSD)
	if err != nil {
		return nil, nil, fmt.Errorf("reserveUSD: %w", err)
	}

	dec0 := parseDecimals(row.Token0.Decimals)
	dec1 := parseDecimals(row.Token1.Decimals)

	liquidity, _ := reserveUSD.Float64()
	edge := &graph.PairEdge{
		ID:              graph.EdgeID(f.chainID, f.dex, addr0, addr1),
		TokenA:          addr0,
		TokenB:          addr1,
		ChainID:         f.chainID,
		DEX:             f.dex,
		Factory:         factory,
		PoolAddress:     pool,
		LiquidityUSD:    liquidity,
		LiquiditySource: graph.LiquidityPriced,
		ReserveA:        reserve0,
		ReserveB:        reserve1,
		FeeBps:          f.feeBps,
		LastUpdated:     now,
	}
	if addr1 < addr0 {
		edge.TokenA, edge.TokenB = addr1, addr0
		edge.ReserveA, edge.ReserveB = reserve1, reserve0
	}

	tokens := []graph.TokenNode{
		{Address: addr0, ChainID: f.chainID, Symbol: row.Token0.Symbol, Decimals: dec0, Category: graph.CategoryAlt, LastUpdated: now},
		{Address: addr1, ChainID: f.chainID, Symbol: row.Token1.Symbol, Decimals: dec1, Category: graph.CategoryAlt, LastUpdated: now},
	}
	return edge, tokens, nil
}

// parseDecimals falls back to the ERC-20 default of 18 on bad input.
func parseDecimals(s string) uint8 {
	var d int
	if _, err := fmt.Sscanf(s, "%d", &d); err != nil || d < 0 || d > 255 {
		return 18
	}
	return uint8(d)
}

// FetchOnDemand is not served by the bulk strategy.
func (f *SubgraphFetcher) FetchOnDemand(ctx context.Context, factory, tokenA, tokenB string) (*graph.PairEdge, error) {
	return nil, ErrNotSupported
}

// query POSTs a GraphQL request with retry and exponential backoff.
func (f *SubgraphFetcher) query(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	delay := f.retryDelay
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", f.maxRetries+1, lastErr)
}
