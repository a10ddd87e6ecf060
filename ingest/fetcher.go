// Package ingest pulls trading-pair data from external sources and
// materializes it into per-chain liquidity graphs.
package ingest

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helioswap/routegraph/graph"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "ingest").Logger()
}

// SetLogger allows setting a custom logger for the ingest package.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "ingest").Logger()
}

var (
	// ErrNotSupported is returned by a fetcher for a call its strategy
	// cannot serve (e.g. bulk-only sources asked for on-demand lookups).
	ErrNotSupported = errors.New("operation not supported by this fetcher")

	// ErrUnsupportedChain is returned by the builder when a chain has no
	// configured factory or source at all.
	ErrUnsupportedChain = errors.New("no factory configured for chain")
)

// BulkResult is the outcome of one bulk fetch. Skipped collects one
// message per malformed row that was dropped; the batch itself never
// aborts over individual rows.
type BulkResult struct {
	Pairs   []graph.PairEdge
	Tokens  []graph.TokenNode
	Skipped []string
}

// PairFetcher is the ingestion boundary: it translates one external
// source's pair representation into normalized graph records. New data
// sources are added by implementing this interface, not by structural
// duck-typing.
type PairFetcher interface {
	// SupportsChain reports whether this fetcher can serve the chain.
	SupportsChain(chainID uint64) bool

	// FetchBulk fetches up to limit highest-liquidity pairs for a
	// factory in one batched call. Malformed rows are skipped and
	// reported in the result; a transport failure surfaces as the
	// returned error and the caller logs and continues.
	FetchBulk(ctx context.Context, factory string, limit int) (BulkResult, error)

	// FetchOnDemand resolves a single pair via the source. It returns
	// (nil, nil) when no pool exists — absence is not an error.
	FetchOnDemand(ctx context.Context, factory, tokenA, tokenB string) (*graph.PairEdge, error)
}
