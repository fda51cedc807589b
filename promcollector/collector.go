// Package promcollector exports randflake generator metrics to Prometheus.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(promcollector.New(gen, prometheus.Labels{"service": "orders"}))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// PromQL:
//
//	rate(randflake_ids_generated_total[1m])
//	increase(randflake_clock_regressions_total[5m]) > 0
package promcollector

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sxyafiq/randflake"
)

const namespace = "randflake"

// Source is what the collector reads from. *randflake.Generator satisfies it.
type Source interface {
	GetMetrics() randflake.Metrics
	MachineID() int64
	Incarnation() string
}

// Collector implements prometheus.Collector over a generator's counters.
// Values are read at scrape time; nothing is cached.
type Collector struct {
	src Source

	generated         *prometheus.Desc
	clockRegressions  *prometheus.Desc
	sequenceExhausted *prometheus.Desc
	waitSeconds       *prometheus.Desc
	checkpointSaves   *prometheus.Desc
	checkpointErrors  *prometheus.Desc
	info              *prometheus.Desc
}

// New returns a Collector for src. Every metric carries a machine_id label
// plus the given constant labels.
func New(src Source, labels prometheus.Labels) *Collector {
	constLabels := prometheus.Labels{"machine_id": strconv.FormatInt(src.MachineID(), 10)}
	for k, v := range labels {
		constLabels[k] = v
	}

	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, constLabels)
	}

	return &Collector{
		src:               src,
		generated:         desc("ids_generated_total", "Total number of IDs generated."),
		clockRegressions:  desc("clock_regressions_total", "Calls rejected because the clock moved backwards."),
		sequenceExhausted: desc("sequence_exhausted_total", "Milliseconds whose 4096 sequence values ran out."),
		waitSeconds:       desc("wait_seconds_total", "Time spent waiting for the clock to advance."),
		checkpointSaves:   desc("checkpoint_saves_total", "High-water marks persisted."),
		checkpointErrors:  desc("checkpoint_errors_total", "Failed checkpoint saves."),
		info:              desc("generator_info", "Generator information.", "incarnation"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.generated
	ch <- c.clockRegressions
	ch <- c.sequenceExhausted
	ch <- c.waitSeconds
	ch <- c.checkpointSaves
	ch <- c.checkpointErrors
	ch <- c.info
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.GetMetrics()
	wait := (time.Duration(m.WaitTimeUs) * time.Microsecond).Seconds()

	ch <- prometheus.MustNewConstMetric(c.generated, prometheus.CounterValue, float64(m.Generated))
	ch <- prometheus.MustNewConstMetric(c.clockRegressions, prometheus.CounterValue, float64(m.ClockRegressions))
	ch <- prometheus.MustNewConstMetric(c.sequenceExhausted, prometheus.CounterValue, float64(m.SequenceExhausted))
	ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, wait)
	ch <- prometheus.MustNewConstMetric(c.checkpointSaves, prometheus.CounterValue, float64(m.CheckpointSaves))
	ch <- prometheus.MustNewConstMetric(c.checkpointErrors, prometheus.CounterValue, float64(m.CheckpointErrors))
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, c.src.Incarnation())
}
