// Package router discovers and ranks swap routes over a chain's
// liquidity graph.
package router

import (
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helioswap/routegraph/graph"
)

var routerLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	routerLog = zerolog.New(out).With().Timestamp().Str("component", "router").Logger()
}

// SetLogger allows setting a custom logger for the router package.
func SetLogger(l zerolog.Logger) {
	routerLog = l.With().Str("component", "router").Logger()
}

// Scoring constants for intermediary candidates: a category weight plus
// a liquidity term capped at 50 points (saturating at $10M) plus an
// edge-quality term capped at 30 points (saturating at $1M average of
// the two bridging edges). Deliberately simple: it needs nothing beyond
// liquidity figures already on the graph.
const (
	liquidityTermCap        = 50.0
	liquidityTermSaturation = 10_000_000.0
	edgeTermCap             = 30.0
	edgeTermSaturation      = 1_000_000.0
)

var categoryWeights = map[graph.Category]float64{
	graph.CategoryNative:   100,
	graph.CategoryStable:   80,
	graph.CategoryBluechip: 60,
	graph.CategoryAlt:      20,
}

// Candidate is one proposed intermediary hop token.
type Candidate struct {
	Token        string
	Symbol       string
	Category     graph.Category
	LiquidityUSD float64
	Score        float64
}

// IntermediarySelector bounds the pathfinding search space by proposing
// the most promising hop tokens between a source and a target.
type IntermediarySelector struct {
	graph           *graph.LiquidityGraph
	minLiquidityUSD float64
}

// NewIntermediarySelector creates a selector over the graph. Candidates
// below minLiquidityUSD aggregate liquidity are ruled out; pass 0 to
// disable the floor.
func NewIntermediarySelector(g *graph.LiquidityGraph, minLiquidityUSD float64) *IntermediarySelector {
	return &IntermediarySelector{graph: g, minLiquidityUSD: minLiquidityUSD}
}

// Select proposes up to maxCount hop tokens between from and to, best
// first. A token qualifies only if it has a direct pool with both
// endpoints, i.e. it is a viable 2-hop bridge.
func (s *IntermediarySelector) Select(from, to string, maxCount int) []Candidate {
	bridges := s.graph.Neighbors(from).Intersect(s.graph.Neighbors(to))
	bridges.Remove(from)
	bridges.Remove(to)

	candidates := make([]Candidate, 0, bridges.Cardinality())
	bridges.Each(func(token string) bool {
		node, ok := s.graph.Node(token)
		if !ok {
			return false
		}
		if s.minLiquidityUSD > 0 && node.LiquidityUSD < s.minLiquidityUSD {
			return false
		}

		edgeFrom, okFrom := s.graph.Edge(from, token, "")
		edgeTo, okTo := s.graph.Edge(token, to, "")
		if !okFrom || !okTo {
			return false
		}

		candidates = append(candidates, Candidate{
			Token:        token,
			Symbol:       node.Symbol,
			Category:     node.Category,
			LiquidityUSD: node.LiquidityUSD,
			Score:        scoreCandidate(node, edgeFrom, edgeTo),
		})
		return false
	})

	sortCandidates(candidates)
	if maxCount > 0 && len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}
	return candidates
}

func scoreCandidate(node graph.TokenNode, edgeFrom, edgeTo graph.PairEdge) float64 {
	score := categoryWeights[node.Category]

	liquidityTerm := node.LiquidityUSD / liquidityTermSaturation * liquidityTermCap
	if liquidityTerm > liquidityTermCap {
		liquidityTerm = liquidityTermCap
	}
	score += liquidityTerm

	avgEdge := (edgeFrom.LiquidityUSD + edgeTo.LiquidityUSD) / 2
	edgeTerm := avgEdge / edgeTermSaturation * edgeTermCap
	if edgeTerm > edgeTermCap {
		edgeTerm = edgeTermCap
	}
	score += edgeTerm

	return score
}

// ByCategory returns up to limit tokens of one category, highest
// aggregate liquidity first. Used for diagnostics and as a seed when
// the bridge-aware scorer finds nothing.
func (s *IntermediarySelector) ByCategory(category graph.Category, limit int) []Candidate {
	nodes := s.graph.NodesByLiquidity(s.minLiquidityUSD)
	out := make([]Candidate, 0, limit)
	for _, n := range nodes {
		if n.Category != category {
			continue
		}
		out = append(out, Candidate{
			Token:        n.Address,
			Symbol:       n.Symbol,
			Category:     n.Category,
			LiquidityUSD: n.LiquidityUSD,
			Score:        categoryWeights[n.Category],
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// HighLiquidity returns up to limit tokens whose aggregate liquidity
// clears minUSD, highest first.
func (s *IntermediarySelector) HighLiquidity(minUSD float64, limit int) []Candidate {
	nodes := s.graph.NodesByLiquidity(minUSD)
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	out := make([]Candidate, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Candidate{
			Token:        n.Address,
			Symbol:       n.Symbol,
			Category:     n.Category,
			LiquidityUSD: n.LiquidityUSD,
			Score:        n.LiquidityUSD,
		})
	}
	return out
}

func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Token < candidates[j].Token
	})
}
