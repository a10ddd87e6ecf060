package models

import "time"

// BuildStatus is the structured result of one graph build for a single
// chain. Partial failures accumulate in Errors; the build itself still
// reports whatever it managed to ingest.
type BuildStatus struct {
	ChainID      uint64        `json:"chainId"`
	Timestamp    time.Time     `json:"timestamp"`
	PairsUpdated int           `json:"pairsUpdated"`
	PairsTotal   int           `json:"pairsTotal"`
	Duration     time.Duration `json:"duration"`
	Errors       []string      `json:"errors,omitempty"`
}

// GraphStats summarizes one chain's graph and its cache.
type GraphStats struct {
	ChainID             uint64  `json:"chainId"`
	NodeCount           int     `json:"nodeCount"`
	EdgeCount           int     `json:"edgeCount"`
	TotalLiquidityUSD   float64 `json:"totalLiquidityUsd"`
	AvgEdgeLiquidityUSD float64 `json:"avgEdgeLiquidityUsd"`
	UnpricedEdgeCount   int     `json:"unpricedEdgeCount"`
	CacheEntries        int     `json:"cacheEntries"`
	CacheCapacity       int     `json:"cacheCapacity"`
}
