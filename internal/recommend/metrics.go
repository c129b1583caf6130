package recommend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recsys_cache_hits_total",
		Help: "Number of recommendation requests served from the result cache",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recsys_cache_misses_total",
		Help: "Number of recommendation requests that required a fresh computation",
	})
	cacheErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recsys_cache_errors_total",
		Help: "Number of cache operations that failed and fell back to direct computation",
	})
	blendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recsys_blend_duration_seconds",
		Help:    "Time spent blending engine scores into a ranked list",
		Buckets: prometheus.DefBuckets,
	})
	retrainDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recsys_retrain_duration_seconds",
		Help:    "Time spent rebuilding the snapshot and refitting the latent factors",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})
	lastRetrain = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recsys_last_retrain_timestamp_seconds",
		Help: "Unix timestamp of the last successful model retrain",
	})
)

// ObserveRetrain records the duration and completion time of a successful
// model retrain.
func ObserveRetrain(d time.Duration) {
	retrainDuration.Observe(d.Seconds())
	lastRetrain.SetToCurrentTime()
}

func init() {
	collectors := []prometheus.Collector{
		cacheHits, cacheMisses, cacheErrors,
		blendDuration, retrainDuration, lastRetrain,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}
