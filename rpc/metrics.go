package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "routegraph_route_queries_total",
	Help: "Route queries by chain and outcome (ok, empty, invalid).",
}, []string{"chain", "outcome"})
