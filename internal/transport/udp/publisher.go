// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"hearaid/internal/dsp/wdrc"
	applog "hearaid/internal/log"
	"hearaid/internal/transport"
)

// Publisher periodically fetches per-band compression metrics, packs
// them into a binary format, and sends them over UDP using a Sender.
// It runs in a separate goroutine managed by Start and Stop.
type Publisher struct {
	sender   *Sender
	source   transport.MetricsSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop

	sequenceNum uint32 // Monotonically increasing packet sequence number

	// Pre-allocated buffers to avoid allocations in buildAndSendPacket.
	bandBuffer   []wdrc.BandMetrics
	packetBuffer *bytes.Buffer
}

// NewPublisher creates and initializes a UDP metrics publisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender *Sender, source transport.MetricsSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("udp publisher: metrics source cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDP Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	numBands := source.NumBands()
	applog.Infof("UDP Publisher: Initializing (Interval: %s, Bands: %d)", interval, numBands)

	return &Publisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		bandBuffer:   make([]wdrc.BandMetrics, numBands),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process. Safe to call multiple
// times; subsequent calls are no-ops while running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP Publisher: Start called but already running.")
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
		applog.Infof("UDP Publisher: goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and
// waits for it to exit. Safe to call multiple times.
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

/*
UDP Packet Structure (BigEndian)

|<-- 4 Bytes -->|<---- 8 Bytes ---->|<-- 2 Bytes -->|<--- N * 16 Bytes --->|
+---------------+-------------------+---------------+----------------------+
|   Sequence    |     Timestamp     |  Band Count   |     Band Records     |
|   (uint32)    |      (int64)      |    (uint16)   |   (N * 4 float32)    |
+---------------+-------------------+---------------+----------------------+

Each band record carries four float32 values:
low Hz, high Hz, envelope dB, gain reduction dB.
*/

// buildAndSendPacket runs on each ticker interval. It snapshots the
// metrics source, packs the header and band records, and hands the
// packet to the sender.
func (p *Publisher) buildAndSendPacket() {
	n := p.source.BandMetrics(p.bandBuffer)

	p.sequenceNum++
	timestamp := time.Now().UnixNano()

	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(n))
	}
	for i := 0; i < n && err == nil; i++ {
		band := &p.bandBuffer[i]
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(band.LowHz))
		if err == nil {
			err = binary.Write(p.packetBuffer, binary.BigEndian, float32(band.HighHz))
		}
		if err == nil {
			err = binary.Write(p.packetBuffer, binary.BigEndian, float32(band.EnvelopeDB))
		}
		if err == nil {
			err = binary.Write(p.packetBuffer, binary.BigEndian, float32(band.GainReductionDB))
		}
	}

	if err != nil {
		applog.Errorf("UDP Publisher: Error packing data into binary buffer: %v", err)
		return
	}

	packetBytes := p.packetBuffer.Bytes()

	if err := p.sender.Send(packetBytes); err == nil {
		applog.Debugf("UDP Publisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
	}
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
