package rpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/helioswap/routegraph/cache"
	"github.com/helioswap/routegraph/graph"
	"github.com/helioswap/routegraph/ingest"
	"github.com/helioswap/routegraph/models"
	"github.com/helioswap/routegraph/router"
	"github.com/helioswap/routegraph/rpc"
)

const (
	weth    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc    = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	factory = "0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f"
)

type fixedBulk struct {
	result ingest.BulkResult
}

func (f *fixedBulk) SupportsChain(uint64) bool { return true }

func (f *fixedBulk) FetchBulk(ctx context.Context, factory string, limit int) (ingest.BulkResult, error) {
	return f.result, nil
}

func (f *fixedBulk) FetchOnDemand(ctx context.Context, factory, tokenA, tokenB string) (*graph.PairEdge, error) {
	return nil, ingest.ErrNotSupported
}

func testServer(t *testing.T) (*httptest.Server, *ingest.Registry) {
	t.Helper()

	g := graph.NewLiquidityGraph(1)
	c := cache.NewManager(100, 5*time.Minute)

	a, b := graph.SortAddresses(weth, usdc)
	bulk := &fixedBulk{result: ingest.BulkResult{
		Pairs: []graph.PairEdge{{
			TokenA: a, TokenB: b, ChainID: 1, DEX: "uniswap-v2",
			Factory:         factory,
			PoolAddress:     "0x0000000000000000000000000000000000001111",
			LiquidityUSD:    5_000_000,
			LiquiditySource: graph.LiquidityPriced,
			FeeBps:          30,
			LastUpdated:     time.Now(),
		}},
	}}
	builder := ingest.NewGraphBuilder(1, g, c,
		[]ingest.Source{{DEX: "uniswap-v2", Factory: factory, Bulk: bulk}},
		nil, ingest.DefaultBuilderConfig())

	registry := ingest.NewRegistry()
	registry.Register(&ingest.ChainService{
		ChainID:    1,
		Graph:      g,
		Cache:      c,
		Builder:    builder,
		Pathfinder: router.NewPathfinder(g, nil),
	})

	cfg := rpc.DefaultServerConfig()
	cfg.RatePerMinute = nil // keep rate limiting out of the tests
	cfg.Burst = nil
	server := rpc.NewServer(cfg, registry, ingest.NewUpdater(registry, time.Minute))

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, registry
}

func get(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if into != nil {
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func post(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if into != nil {
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := testServer(t)
	assert.Equal(t, http.StatusOK, get(t, ts.URL+"/health", nil))
}

func TestReadinessFlipsAfterBuild(t *testing.T) {
	ts, _ := testServer(t)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, ts.URL+"/ready", nil))

	var status models.BuildStatus
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/v1/graph/1/build", &status))
	assert.Equal(t, uint64(1), status.ChainID)
	assert.Equal(t, 1, status.PairsUpdated)

	assert.Equal(t, http.StatusOK, get(t, ts.URL+"/ready", nil))
}

func TestFindRoutesEndpoint(t *testing.T) {
	ts, _ := testServer(t)
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/v1/graph/1/build", nil))

	var body struct {
		ChainID uint64         `json:"chainId"`
		Routes  []models.Route `json:"routes"`
	}
	code := get(t, ts.URL+"/v1/routes?chain=1&from="+weth+"&to="+usdc+"&maxHops=3", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(1), body.ChainID)
	assert.Equal(t, 1, len(body.Routes))
	assert.Equal(t, 1, body.Routes[0].HopCount)
	assert.Equal(t, weth, body.Routes[0].Hops[0].TokenIn)
}

func TestFindRoutesRejectsBadRequests(t *testing.T) {
	ts, _ := testServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, ts.URL+"/v1/routes?chain=abc&from="+weth+"&to="+usdc, nil))
	assert.Equal(t, http.StatusBadRequest, get(t, ts.URL+"/v1/routes?chain=1&from=&to="+usdc, nil))
	assert.Equal(t, http.StatusBadRequest, get(t, ts.URL+"/v1/routes?chain=1&from=garbage&to="+usdc, nil))
	assert.Equal(t, http.StatusBadRequest, get(t, ts.URL+"/v1/routes?chain=1&from="+weth+"&to="+usdc+"&algorithm=a-star", nil))
	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/v1/routes?chain=999&from="+weth+"&to="+usdc, nil))
}

func TestGraphStatsEndpoint(t *testing.T) {
	ts, _ := testServer(t)
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/v1/graph/1/build", nil))

	var stats models.GraphStats
	assert.Equal(t, http.StatusOK, get(t, ts.URL+"/v1/graph/1/stats", &stats))
	assert.Equal(t, uint64(1), stats.ChainID)
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)

	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/v1/graph/999/stats", nil))
}

func TestBuildAllEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	var statuses []models.BuildStatus
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/v1/graph/build", &statuses))
	assert.Equal(t, 1, len(statuses))
	assert.Equal(t, 1, statuses[0].PairsUpdated)
}
