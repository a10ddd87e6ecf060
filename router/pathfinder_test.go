package router_test

import (
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/helioswap/routegraph/graph"
	"github.com/helioswap/routegraph/models"
	"github.com/helioswap/routegraph/router"
)

const (
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	dai  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	tokA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	tokB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	tokC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func addToken(g *graph.LiquidityGraph, address, symbol string, category graph.Category) {
	g.AddNode(graph.TokenNode{
		Address:     address,
		ChainID:     1,
		Symbol:      symbol,
		Decimals:    18,
		Category:    category,
		LastUpdated: time.Now(),
	})
}

func addPool(g *graph.LiquidityGraph, tokenA, tokenB string, liquidityUSD float64) {
	a, b := graph.SortAddresses(tokenA, tokenB)
	g.AddEdge(graph.PairEdge{
		TokenA:          a,
		TokenB:          b,
		ChainID:         1,
		DEX:             "uniswap-v2",
		PoolAddress:     "0x0000000000000000000000000000000000009999",
		LiquidityUSD:    liquidityUSD,
		LiquiditySource: graph.LiquidityPriced,
		FeeBps:          30,
		LastUpdated:     time.Now(),
	})
}

// testGraph builds the fixture used across the router tests:
//
//	TOKA --$2M-- USDC --$3M-- TOKB
//	              |
//	WETH --$5M----+
//	WETH --$1M-- DAI
//	TOKC is isolated.
func testGraph() *graph.LiquidityGraph {
	g := graph.NewLiquidityGraph(1)
	addToken(g, weth, "WETH", graph.CategoryNative)
	addToken(g, usdc, "USDC", graph.CategoryStable)
	addToken(g, dai, "DAI", graph.CategoryStable)
	addToken(g, tokA, "TOKA", graph.CategoryAlt)
	addToken(g, tokB, "TOKB", graph.CategoryAlt)
	addToken(g, tokC, "TOKC", graph.CategoryAlt)

	addPool(g, tokA, usdc, 2_000_000)
	addPool(g, usdc, tokB, 3_000_000)
	addPool(g, weth, usdc, 5_000_000)
	addPool(g, weth, dai, 1_000_000)

	g.RefreshNodeLiquidity()
	return g
}

func TestSelectorProposesCommonBridgeToken(t *testing.T) {
	g := testGraph()
	selector := router.NewIntermediarySelector(g, 0)

	candidates := selector.Select(tokA, tokB, 8)
	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, usdc, candidates[0].Token)
	assert.Equal(t, graph.CategoryStable, candidates[0].Category)
	assert.True(t, candidates[0].Score > 0)
}

func TestSelectorExcludesEndpointsAndUnbridgedTokens(t *testing.T) {
	g := testGraph()
	selector := router.NewIntermediarySelector(g, 0)

	// WETH and USDC share no third token pooled with both.
	candidates := selector.Select(weth, dai, 8)
	assert.Equal(t, 0, len(candidates))

	// The liquidity floor rules out otherwise valid bridges.
	strict := router.NewIntermediarySelector(g, 50_000_000)
	assert.Equal(t, 0, len(strict.Select(tokA, tokB, 8)))
}

func TestSelectorByCategoryAndHighLiquidity(t *testing.T) {
	g := testGraph()
	selector := router.NewIntermediarySelector(g, 0)

	stables := selector.ByCategory(graph.CategoryStable, 10)
	assert.Equal(t, 2, len(stables))
	assert.Equal(t, usdc, stables[0].Token) // deeper than DAI

	deep := selector.HighLiquidity(9_000_000, 10)
	assert.Equal(t, 1, len(deep))
	assert.Equal(t, usdc, deep[0].Token)
}

func TestBFSFindsDirectAndTwoHopPaths(t *testing.T) {
	g := testGraph()
	bfs := router.NewBFSPathfinder(g)

	direct := bfs.FindPaths(weth, usdc, 3, nil)
	assert.True(t, len(direct) >= 1)
	assert.Equal(t, 1, len(direct[0]))

	twoHop := bfs.FindPaths(tokA, tokB, 3, nil)
	assert.Equal(t, 1, len(twoHop))
	assert.Equal(t, 2, len(twoHop[0]))
}

func TestBFSRespectsHopBoundAndAllowedFilter(t *testing.T) {
	g := testGraph()
	bfs := router.NewBFSPathfinder(g)

	// TOKA -> DAI needs 3 hops (TOKA, USDC, WETH, DAI).
	assert.Equal(t, 0, len(bfs.FindPaths(tokA, dai, 2, nil)))
	assert.Equal(t, 1, len(bfs.FindPaths(tokA, dai, 3, nil)))

	// Forbidding USDC as an intermediary severs the only path.
	noUSDC := func(token string) bool { return token != usdc }
	assert.Equal(t, 0, len(bfs.FindPaths(tokA, dai, 3, noUSDC)))
}

func TestDijkstraFindsPathAndHonorsBound(t *testing.T) {
	g := testGraph()
	dijkstra := router.NewDijkstraPathfinder(g)

	path := dijkstra.FindPath(tokA, tokB, 3, nil)
	assert.Equal(t, 2, len(path))

	assert.Nil(t, dijkstra.FindPath(tokA, dai, 2, nil))
	assert.Equal(t, 3, len(dijkstra.FindPath(tokA, dai, 3, nil)))

	// Unroutable pair yields nil, not an error or a panic.
	assert.Nil(t, dijkstra.FindPath(tokA, tokC, 4, nil))
}

func TestScorerPrefersDeeperAndShorterRoutes(t *testing.T) {
	g := testGraph()
	scorer := router.NewRouteScorer()

	edgeAU, _ := g.Edge(tokA, usdc, "")
	edgeUB, _ := g.Edge(usdc, tokB, "")
	edgeWU, _ := g.Edge(weth, usdc, "")

	oneHop := scorer.BuildRoute(weth, []graph.PairEdge{edgeWU})
	assert.Equal(t, 1, oneHop.HopCount)
	assert.Equal(t, weth, oneHop.Hops[0].TokenIn)
	assert.Equal(t, usdc, oneHop.Hops[0].TokenOut)
	assert.Equal(t, 5_000_000.0, oneHop.MinLiquidityUSD)

	twoHop := scorer.BuildRoute(tokA, []graph.PairEdge{edgeAU, edgeUB})
	assert.Equal(t, 2, twoHop.HopCount)
	assert.Equal(t, tokA, twoHop.Hops[0].TokenIn)
	assert.Equal(t, usdc, twoHop.Hops[0].TokenOut)
	assert.Equal(t, usdc, twoHop.Hops[1].TokenIn)
	assert.Equal(t, tokB, twoHop.Hops[1].TokenOut)
	assert.Equal(t, 2_000_000.0, twoHop.MinLiquidityUSD)
	assert.Equal(t, 5_000_000.0, twoHop.TotalLiquidityUSD)

	// A deeper route with the same shape scores higher; an extra hop on
	// the same pools scores lower.
	assert.True(t, oneHop.Score > twoHop.Score)
	sameLiquidityLonger := scorer.BuildRoute(weth, []graph.PairEdge{edgeWU, edgeWU})
	assert.True(t, oneHop.Score > sameLiquidityLonger.Score)

	routes := []models.Route{twoHop, oneHop}
	scorer.RankRoutes(routes)
	assert.Equal(t, 1, routes[0].HopCount)
}

func TestFindRoutesDirectPair(t *testing.T) {
	g := testGraph()
	pf := router.NewPathfinder(g, nil)

	routes, err := pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: weth, ToToken: usdc, MaxHops: 3},
		models.RouteOptions{},
	)
	assert.NoError(t, err)
	assert.True(t, len(routes) >= 1)
	assert.Equal(t, 1, routes[0].HopCount)
	assert.Equal(t, weth, routes[0].Hops[0].TokenIn)
	assert.Equal(t, usdc, routes[0].Hops[0].TokenOut)
}

func TestFindRoutesBridgesThroughIntermediary(t *testing.T) {
	g := testGraph()
	pf := router.NewPathfinder(g, nil)

	routes, err := pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: tokA, ToToken: tokB, MaxHops: 3},
		models.RouteOptions{},
	)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(routes))
	assert.Equal(t, 2, routes[0].HopCount)
	assert.Equal(t, usdc, routes[0].Hops[0].TokenOut)
}

func TestFindRoutesDisconnectedPairIsEmptyNotError(t *testing.T) {
	g := testGraph()
	pf := router.NewPathfinder(g, nil)

	routes, err := pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: weth, ToToken: tokC, MaxHops: 4},
		models.RouteOptions{},
	)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(routes))
}

func TestFindRoutesValidatesRequest(t *testing.T) {
	g := testGraph()
	pf := router.NewPathfinder(g, nil)

	_, err := pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: "garbage", ToToken: usdc},
		models.RouteOptions{},
	)
	assert.Error(t, err)

	_, err = pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: weth, ToToken: weth},
		models.RouteOptions{},
	)
	assert.Error(t, err)

	_, err = pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: weth, ToToken: usdc},
		models.RouteOptions{Algorithm: "a-star"},
	)
	assert.Error(t, err)
}

func TestFindRoutesNormalizesMixedCaseAddresses(t *testing.T) {
	g := testGraph()
	pf := router.NewPathfinder(g, nil)

	routes, err := pf.FindRoutes(
		models.RouteRequest{
			ChainID:   1,
			FromToken: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			ToToken:   "0xA0b86991C6218b36c1d19D4a2e9Eb0cE3606eB48",
		},
		models.RouteOptions{Algorithm: models.AlgorithmDijkstra},
	)
	assert.NoError(t, err)
	assert.True(t, len(routes) >= 1)
	assert.Equal(t, weth, routes[0].Hops[0].TokenIn)
}

func TestFindRoutesCapsAndRanksResults(t *testing.T) {
	g := testGraph()
	// A second, shallower bridge through WETH gives TOKA -> TOKB more
	// than one viable path.
	addPool(g, tokA, weth, 1_000_000)
	addPool(g, weth, tokB, 1_000_000)
	g.RefreshNodeLiquidity()
	pf := router.NewPathfinder(g, nil)

	all, err := pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: tokA, ToToken: tokB, MaxHops: 3},
		models.RouteOptions{},
	)
	assert.NoError(t, err)
	assert.True(t, len(all) >= 2)
	// The deeper USDC bridge outranks the shallower WETH one.
	assert.Equal(t, usdc, all[0].Hops[0].TokenOut)

	capped, err := pf.FindRoutes(
		models.RouteRequest{ChainID: 1, FromToken: tokA, ToToken: tokB, MaxHops: 3},
		models.RouteOptions{MaxRoutes: 1},
	)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(capped))
	assert.Equal(t, all[0].Score, capped[0].Score)
}
