// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	"hearaid/internal/dsp/wdrc"
	applog "hearaid/internal/log"
)

// Publisher periodically snapshots a MetricsSource and broadcasts the
// readings over a Transport as JSON. It runs in a separate goroutine
// managed by Start and Stop.
type Publisher struct {
	transport Transport
	source    MetricsSource
	interval  time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop

	// Pre-allocated snapshot buffer reused across ticks.
	bands []wdrc.BandMetrics
}

// NewPublisher creates a metrics publisher. If the interval is invalid
// (<= 0) it defaults to 100ms.
func NewPublisher(interval time.Duration, transport Transport, source MetricsSource) (*Publisher, error) {
	if transport == nil {
		return nil, fmt.Errorf("publisher: transport cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("publisher: metrics source cannot be nil")
	}

	if interval <= 0 {
		interval = 100 * time.Millisecond
		applog.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	return &Publisher{
		transport: transport,
		source:    source,
		interval:  interval,
		bands:     make([]wdrc.BandMetrics, source.NumBands()),
	}, nil
}

// Start begins the periodic publishing process. Safe to call multiple
// times; subsequent calls are no-ops while running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("Publisher: goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Safe to call multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Publisher) publish() {
	n := p.source.BandMetrics(p.bands)

	msg := MetricsMessage{
		Timestamp: time.Now().UnixNano(),
		Bands:     p.bands[:n],
	}

	if err := p.transport.Send(msg); err != nil {
		applog.Errorf("Publisher: send failed: %v", err)
	}
}

// Close implements io.Closer by stopping the publisher goroutine.
func (p *Publisher) Close() error {
	return p.Stop()
}
