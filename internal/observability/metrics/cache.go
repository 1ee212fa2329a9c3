package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
)

// CacheStatsCollector exports embedding cache counters on scrape instead of
// instrumenting the cache's hot path.
type CacheStatsCollector struct {
	stats func() ports.EmbeddingCacheStats

	sizeDesc      *prometheus.Desc
	hitsDesc      *prometheus.Desc
	missesDesc    *prometheus.Desc
	evictionsDesc *prometheus.Desc
	expiredDesc   *prometheus.Desc
}

func NewCacheStatsCollector(service string, stats func() ports.EmbeddingCacheStats) *CacheStatsCollector {
	labels := prometheus.Labels{"service": service}
	return &CacheStatsCollector{
		stats: stats,
		sizeDesc: prometheus.NewDesc(
			"rfx_embedding_cache_size",
			"Current number of cached embeddings.",
			nil, labels,
		),
		hitsDesc: prometheus.NewDesc(
			"rfx_embedding_cache_hits_total",
			"Total embedding cache hits.",
			nil, labels,
		),
		missesDesc: prometheus.NewDesc(
			"rfx_embedding_cache_misses_total",
			"Total embedding cache misses.",
			nil, labels,
		),
		evictionsDesc: prometheus.NewDesc(
			"rfx_embedding_cache_evictions_total",
			"Total cache entries evicted for capacity.",
			nil, labels,
		),
		expiredDesc: prometheus.NewDesc(
			"rfx_embedding_cache_expired_total",
			"Total cache entries dropped after TTL expiry.",
			nil, labels,
		),
	}
}

func (c *CacheStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sizeDesc
	ch <- c.hitsDesc
	ch <- c.missesDesc
	ch <- c.evictionsDesc
	ch <- c.expiredDesc
}

func (c *CacheStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.sizeDesc, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.hitsDesc, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.missesDesc, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictionsDesc, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.expiredDesc, prometheus.CounterValue, float64(s.Expired))
}
