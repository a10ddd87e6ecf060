package models

// RouteRequest describes a single route query against one chain's graph.
type RouteRequest struct {
	ChainID   uint64 `json:"chainId"`
	FromToken string `json:"fromToken"`
	ToToken   string `json:"toToken"`
	MaxHops   int    `json:"maxHops"`
}

// Algorithm selects the search strategy for a route query.
type Algorithm string

const (
	AlgorithmBFS      Algorithm = "bfs"
	AlgorithmDijkstra Algorithm = "dijkstra"
	AlgorithmAuto     Algorithm = "auto"
)

// Valid reports whether the algorithm is one of the known selectors.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmBFS, AlgorithmDijkstra, AlgorithmAuto:
		return true
	}
	return false
}

// RouteOptions bounds the result set of a route query.
type RouteOptions struct {
	MaxRoutes int       `json:"maxRoutes"`
	Algorithm Algorithm `json:"algorithm"`
}

// Hop is one traversal of a single pool within a route, annotated with
// the direction it is traversed in.
type Hop struct {
	EdgeID       string  `json:"edgeId"`
	DEX          string  `json:"dex"`
	PoolAddress  string  `json:"poolAddress"`
	TokenIn      string  `json:"tokenIn"`
	TokenOut     string  `json:"tokenOut"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	FeeBps       uint32  `json:"feeBps"`
}

// Route is an ordered sequence of hops from a source token to a
// destination token, plus the score assigned by the route scorer and a
// structural summary. Routes are immutable value objects produced fresh
// per query.
type Route struct {
	Hops              []Hop   `json:"hops"`
	HopCount          int     `json:"hopCount"`
	Score             float64 `json:"score"`
	MinLiquidityUSD   float64 `json:"minLiquidityUsd"`
	TotalLiquidityUSD float64 `json:"totalLiquidityUsd"`
}
