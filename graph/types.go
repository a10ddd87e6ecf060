package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Category is a coarse token classification used only as a
// search-space-pruning heuristic by the intermediary selector.
type Category string

const (
	CategoryNative   Category = "native"
	CategoryStable   Category = "stable"
	CategoryBluechip Category = "bluechip"
	CategoryAlt      Category = "alt"
)

// Valid reports whether the category is one of the four known tags.
func (c Category) Valid() bool {
	switch c {
	case CategoryNative, CategoryStable, CategoryBluechip, CategoryAlt:
		return true
	}
	return false
}

// LiquiditySource records how an edge's USD liquidity figure was
// obtained. An unpriced edge carries liquidity 0 because the price
// lookup failed, not because the pool is genuinely empty; keeping the
// tag lets callers tell the two apart.
type LiquiditySource string

const (
	LiquidityPriced   LiquiditySource = "priced"
	LiquidityUnpriced LiquiditySource = "unpriced"
)

// TokenNode is one vertex of the liquidity graph: a fungible asset on
// one chain, identified by chain id + canonical address.
type TokenNode struct {
	Address      string
	ChainID      uint64
	Symbol       string
	Decimals     uint8
	LiquidityUSD float64
	Category     Category
	LastUpdated  time.Time
}

// PairEdge is one undirected edge of the liquidity graph: a pool
// connecting two tokens on one chain via one DEX. TokenA is always the
// lexicographically smaller canonical address.
type PairEdge struct {
	ID              string
	TokenA          string
	TokenB          string
	ChainID         uint64
	DEX             string
	Factory         string
	PoolAddress     string
	LiquidityUSD    float64
	LiquiditySource LiquiditySource
	ReserveA        decimal.Decimal
	ReserveB        decimal.Decimal
	FeeBps          uint32
	LastUpdated     time.Time
}

// Other returns the edge endpoint opposite to the given token, or ""
// if the token is not an endpoint of this edge.
func (e *PairEdge) Other(token string) string {
	switch token {
	case e.TokenA:
		return e.TokenB
	case e.TokenB:
		return e.TokenA
	}
	return ""
}

// CanonicalAddress validates a hex token address and lowers it to the
// canonical form used as a graph key.
func CanonicalAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid token address %q", addr)
	}
	return strings.ToLower(addr), nil
}

// SortAddresses returns the two canonical addresses in lexicographic
// order, so that both orientations of a pair map to the same key.
func SortAddresses(tokenA, tokenB string) (string, string) {
	if tokenB < tokenA {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

// EdgeID derives the deterministic id of a pool from its sorted token
// addresses, chain id and DEX, so the same pool never gets two ids no
// matter which direction it was discovered from.
func EdgeID(chainID uint64, dex, tokenA, tokenB string) string {
	a, b := SortAddresses(tokenA, tokenB)
	return fmt.Sprintf("%d:%s:%s-%s", chainID, dex, a, b)
}

// pairKey indexes every edge between two tokens regardless of DEX.
func pairKey(chainID uint64, tokenA, tokenB string) string {
	a, b := SortAddresses(tokenA, tokenB)
	return fmt.Sprintf("%d:%s-%s", chainID, a, b)
}
