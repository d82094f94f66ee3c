package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "f1_cache_hits_total",
		Help: "Total number of API response cache hits",
	})

	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "f1_cache_misses_total",
		Help: "Total number of API response cache misses",
	})

	writtenBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "f1_cache_written_bytes_total",
		Help: "Bytes written to the API response cache",
	})

	purgedKeysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "f1_cache_purged_keys_total",
		Help: "Keys removed by cache purges",
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "f1_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // get, put, delete, purge
)
