package metrics

import (
	"time"

	"focus-thumbnailer/internal/logging"
)

// QueueStats is a point-in-time view of the job intake state
type QueueStats struct {
	Pending    int
	Processing int
	QueueSize  int
}

// StatsProvider interface for collecting stats
type StatsProvider interface {
	QueueStats() QueueStats
}

// Collector periodically copies intake state into gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.QueueStats()

	JobsPending.Set(float64(stats.Pending))
	JobsProcessing.Set(float64(stats.Processing))
	QueueSize.Set(float64(stats.QueueSize))

	logging.Debug("Metrics collected: pending=%d, processing=%d, queue=%d",
		stats.Pending, stats.Processing, stats.QueueSize)
}
