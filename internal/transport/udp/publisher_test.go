// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"hearaid/internal/dsp/wdrc"
)

type fakeSource struct {
	bands []wdrc.BandMetrics
}

func (f *fakeSource) BandMetrics(dst []wdrc.BandMetrics) int {
	return copy(dst, f.bands)
}

func (f *fakeSource) NumBands() int {
	return len(f.bands)
}

// newTestListener binds a localhost UDP socket and returns it with its address.
func newTestListener(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to bind test listener: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().String()
}

func TestPacketLayout(t *testing.T) {
	listener, addr := newTestListener(t)

	sender, err := NewSender(addr)
	if err != nil {
		t.Fatalf("NewSender failed: %v", err)
	}
	defer sender.Close()

	source := &fakeSource{
		bands: []wdrc.BandMetrics{
			{LowHz: 250, HighHz: 1000, EnvelopeDB: -32.5, GainReductionDB: 8.75},
			{LowHz: 1000, HighHz: 4000, EnvelopeDB: -41.0, GainReductionDB: 2.0},
		},
	}

	p, err := NewPublisher(time.Second, sender, source)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	p.buildAndSendPacket()

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("failed to receive packet: %v", err)
	}

	// Header: sequence(4) + timestamp(8) + count(2), then 16 bytes per band.
	wantLen := 4 + 8 + 2 + len(source.bands)*16
	if n != wantLen {
		t.Fatalf("packet length = %d, want %d", n, wantLen)
	}

	r := bytes.NewReader(buf[:n])
	var sequence uint32
	var timestamp int64
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &sequence); err != nil {
		t.Fatal(err)
	}
	if err := binary.Read(r, binary.BigEndian, &timestamp); err != nil {
		t.Fatal(err)
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		t.Fatal(err)
	}

	if sequence != 1 {
		t.Errorf("sequence = %d, want 1", sequence)
	}
	if timestamp == 0 {
		t.Error("timestamp is zero")
	}
	if int(count) != len(source.bands) {
		t.Errorf("band count = %d, want %d", count, len(source.bands))
	}

	for i, want := range source.bands {
		var record [4]float32
		if err := binary.Read(r, binary.BigEndian, &record); err != nil {
			t.Fatalf("failed to read band %d: %v", i, err)
		}
		if record[0] != float32(want.LowHz) || record[1] != float32(want.HighHz) {
			t.Errorf("band %d range = %v..%v, want %v..%v",
				i, record[0], record[1], want.LowHz, want.HighHz)
		}
		if record[2] != float32(want.EnvelopeDB) || record[3] != float32(want.GainReductionDB) {
			t.Errorf("band %d readings = %v/%v, want %v/%v",
				i, record[2], record[3], want.EnvelopeDB, want.GainReductionDB)
		}
	}
}

func TestPacketSequenceIncrements(t *testing.T) {
	listener, addr := newTestListener(t)

	sender, err := NewSender(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	source := &fakeSource{bands: []wdrc.BandMetrics{{LowHz: 250, HighHz: 8000}}}
	p, err := NewPublisher(time.Second, sender, source)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		p.buildAndSendPacket()
	}

	buf := make([]byte, 1500)
	for want := uint32(1); want <= 3; want++ {
		listener.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := listener.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("failed to receive packet %d: %v", want, err)
		}
		sequence := binary.BigEndian.Uint32(buf[:n])
		if sequence != want {
			t.Errorf("sequence = %d, want %d", sequence, want)
		}
	}
}

func TestSenderClosed(t *testing.T) {
	_, addr := newTestListener(t)

	sender, err := NewSender(addr)
	if err != nil {
		t.Fatal(err)
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := sender.Send([]byte{1, 2, 3}); err == nil {
		t.Error("Send on closed sender should fail")
	}
}

func TestPublisherStartStop(t *testing.T) {
	listener, addr := newTestListener(t)

	sender, err := NewSender(addr)
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	source := &fakeSource{bands: []wdrc.BandMetrics{{LowHz: 250, HighHz: 8000}}}
	p, err := NewPublisher(5*time.Millisecond, sender, source)
	if err != nil {
		t.Fatal(err)
	}

	p.Start()

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := listener.ReadFromUDP(buf); err != nil {
		t.Fatalf("no packet received while running: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close after Stop failed: %v", err)
	}
}
