package router

import (
	"sort"

	"github.com/helioswap/routegraph/graph"
	"github.com/helioswap/routegraph/models"
)

// Route score weights. The score rises with the route's weakest pool
// and with its average depth, and decays with every extra hop, so of
// two routes that differ in only one dimension the better one always
// wins.
const (
	minLiquidityWeight = 0.6
	avgLiquidityWeight = 0.4
	hopPenaltyFactor   = 0.25
)

// RouteScorer turns raw edge paths into ranked, direction-annotated
// routes.
type RouteScorer struct{}

// NewRouteScorer creates a scorer.
func NewRouteScorer() *RouteScorer {
	return &RouteScorer{}
}

// BuildRoute renders an edge path starting at from into a Route. Edges
// are stored in canonical (sorted-address) orientation, so each hop's
// in/out tokens are recovered by walking the path from the source.
func (s *RouteScorer) BuildRoute(from string, edges []graph.PairEdge) models.Route {
	route := models.Route{
		Hops:     make([]models.Hop, 0, len(edges)),
		HopCount: len(edges),
	}
	if len(edges) == 0 {
		return route
	}

	minLiquidity := edges[0].LiquidityUSD
	var totalLiquidity float64

	tokenIn := from
	for _, edge := range edges {
		tokenOut := edge.Other(tokenIn)
		route.Hops = append(route.Hops, models.Hop{
			EdgeID:       edge.ID,
			DEX:          edge.DEX,
			PoolAddress:  edge.PoolAddress,
			TokenIn:      tokenIn,
			TokenOut:     tokenOut,
			LiquidityUSD: edge.LiquidityUSD,
			FeeBps:       edge.FeeBps,
		})
		if edge.LiquidityUSD < minLiquidity {
			minLiquidity = edge.LiquidityUSD
		}
		totalLiquidity += edge.LiquidityUSD
		tokenIn = tokenOut
	}

	route.MinLiquidityUSD = minLiquidity
	route.TotalLiquidityUSD = totalLiquidity
	route.Score = scoreRoute(minLiquidity, totalLiquidity/float64(len(edges)), len(edges))
	return route
}

func scoreRoute(minLiquidity, avgLiquidity float64, hops int) float64 {
	base := minLiquidityWeight*minLiquidity + avgLiquidityWeight*avgLiquidity
	return base / (1 + hopPenaltyFactor*float64(hops-1))
}

// RankRoutes sorts routes best first: higher score, then fewer hops,
// then first hop edge id for a stable order.
func (s *RouteScorer) RankRoutes(routes []models.Route) {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Score != routes[j].Score {
			return routes[i].Score > routes[j].Score
		}
		if routes[i].HopCount != routes[j].HopCount {
			return routes[i].HopCount < routes[j].HopCount
		}
		return firstEdgeID(routes[i]) < firstEdgeID(routes[j])
	})
}

func firstEdgeID(r models.Route) string {
	if len(r.Hops) == 0 {
		return ""
	}
	return r.Hops[0].EdgeID
}
