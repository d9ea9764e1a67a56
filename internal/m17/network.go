// SPDX-License-Identifier: AGPL-3.0-or-later
// M17Host - Bridge an MMDVM modem to M17 IP networks in a single binary
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/M17Host>

package m17

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/metrics"
	"go.opentelemetry.io/otel"
)

const (
	// Depth of the inbound datagram queue.
	networkQueueDepth = 3000
	// How often a keepalive ping is sent to the gateway.
	pingInterval = 5 * time.Second
	// Read deadline on the receive worker so shutdown is bounded.
	readTimeout = time.Second
	// Control datagram tag for ping and ping response.
	tagPing = 0x00

	largestDatagramSize = 2048
)

var ErrOpenSocket = errors.New("error opening socket")

// NetworkConfig describes the UDP endpoint to the M17 gateway.
type NetworkConfig struct {
	LocalAddress   string
	LocalPort      int
	GatewayAddress string
	GatewayPort    int
	Debug          bool
}

// Network is the UDP endpoint to an M17 gateway. It owns the socket and a
// single receive worker; inbound frames are queued for non-blocking reads
// by the controller's driving thread.
type Network struct {
	config  NetworkConfig
	metrics *metrics.Metrics

	conn    *net.UDPConn
	gateway *net.UDPAddr

	enabled   atomic.Bool
	connected atomic.Bool
	running   atomic.Bool
	wg        sync.WaitGroup

	mu    sync.Mutex
	outID uint16
	inID  uint16

	buffer    chan []byte
	sincePing time.Duration
}

// NewNetwork creates a network endpoint with a fresh session ID.
func NewNetwork(config NetworkConfig, metrics *metrics.Metrics) *Network {
	return &Network{
		config:  config,
		metrics: metrics,
		outID:   randomID(),
		buffer:  make(chan []byte, networkQueueDepth),
	}
}

func randomID() uint16 {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return binary.BigEndian.Uint16(b[:])
}

// Open binds the local socket and starts the receive worker.
func (n *Network) Open(ctx context.Context) error {
	_, span := otel.Tracer("M17Host").Start(ctx, "Network.Open")
	defer span.End()

	gateway, err := net.ResolveUDPAddr("udp",
		net.JoinHostPort(n.config.GatewayAddress, fmt.Sprintf("%d", n.config.GatewayPort)))
	if err != nil {
		slog.Error("Error resolving M17 gateway address", "error", err)
		return fmt.Errorf("%w: %w", ErrOpenSocket, err)
	}
	n.gateway = gateway

	conn, err := net.ListenUDP("udp", &net.UDPAddr{
		IP:   net.ParseIP(n.config.LocalAddress),
		Port: n.config.LocalPort,
	})
	if err != nil {
		slog.Error("Error opening UDP socket", "error", err)
		return fmt.Errorf("%w: %w", ErrOpenSocket, err)
	}
	n.conn = conn

	n.running.Store(true)
	n.wg.Add(1)
	go n.rxLoop()

	slog.Info("M17 network open",
		"local", conn.LocalAddr().String(), "gateway", gateway.String())
	return nil
}

// Enable turns traffic on or off. Disabling also drops the connected flag
// so forwarding no-ops until the ping handshake re-establishes.
func (n *Network) Enable(enabled bool) {
	n.enabled.Store(enabled)
	if !enabled {
		n.setConnected(false)
	}
}

// IsConnected reports whether the gateway has answered a ping.
func (n *Network) IsConnected() bool {
	return n.connected.Load()
}

func (n *Network) setConnected(connected bool) {
	n.connected.Store(connected)
	n.metrics.SetNetworkConnected(connected)
}

// Write sends one datagram to the gateway.
func (n *Network) Write(data []byte) error {
	if !n.enabled.Load() || n.conn == nil {
		return ErrNotOpen
	}
	sent, err := n.conn.WriteToUDP(data, n.gateway)
	if err != nil {
		slog.Error("Error writing to M17 network", "error", err)
		n.setConnected(false)
		return err
	}
	if sent != len(data) {
		n.setConnected(false)
		return fmt.Errorf("short write: %d of %d bytes: %w", sent, len(data), ErrLength)
	}
	if n.config.Debug {
		slog.Debug("Sent M17 datagram", "length", sent)
	}
	return nil
}

// Read returns the next queued inbound datagram, or nil when the queue is
// empty. It never blocks.
func (n *Network) Read() []byte {
	if !n.enabled.Load() {
		return nil
	}
	select {
	case data := <-n.buffer:
		return data
	default:
		return nil
	}
}

// Reset regenerates the session ID, clears the queue, and drops the
// connected flag.
func (n *Network) Reset() {
	n.mu.Lock()
	n.outID = randomID()
	n.inID = 0
	n.mu.Unlock()
	n.setConnected(false)
	for {
		select {
		case <-n.buffer:
		default:
			return
		}
	}
}

// Clock accumulates elapsed time and sends a keepalive ping to the
// gateway every five seconds while enabled.
func (n *Network) Clock(elapsed time.Duration) {
	if !n.enabled.Load() {
		return
	}
	n.sincePing += elapsed
	if n.sincePing >= pingInterval {
		n.sincePing = 0
		n.sendPing()
	}
}

// Close stops the receive worker and closes the socket.
func (n *Network) Close(ctx context.Context) {
	_, span := otel.Tracer("M17Host").Start(ctx, "Network.Close")
	defer span.End()

	n.running.Store(false)
	n.wg.Wait()
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}

func (n *Network) rxLoop() {
	defer n.wg.Done()
	buf := make([]byte, largestDatagramSize)
	for n.running.Load() {
		if err := n.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			slog.Error("Error setting read deadline on M17 socket", "error", err)
			return
		}
		length, remote, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if n.running.Load() {
				slog.Error("Error reading from M17 network, swallowing error", "error", err)
			}
			continue
		}
		if length == 0 {
			continue
		}
		if !remote.IP.Equal(n.gateway.IP) || remote.Port != n.gateway.Port {
			slog.Debug("Discarding datagram from unexpected peer", "remote", remote.String())
			continue
		}

		if buf[0] == tagPing {
			if length >= 3 {
				n.mu.Lock()
				n.inID = binary.BigEndian.Uint16(buf[1:3])
				n.mu.Unlock()
			}
			n.setConnected(true)
			continue
		}

		data := make([]byte, length)
		copy(data, buf[:length])
		select {
		case n.buffer <- data:
		default:
			// Queue full; the newest arrival is the one dropped.
			n.metrics.RecordQueueDrop()
		}
	}
}

// sendPing transmits a keepalive carrying the session ID. A failed ping
// drops the connected flag; the next successful handshake restores it.
func (n *Network) sendPing() {
	if n.conn == nil {
		return
	}
	n.mu.Lock()
	outID := n.outID
	n.mu.Unlock()
	ping := []byte{tagPing, byte(outID >> 8), byte(outID & 0xFF)}
	if _, err := n.conn.WriteToUDP(ping, n.gateway); err != nil {
		slog.Error("Error sending M17 ping", "error", err)
		n.setConnected(false)
		return
	}
	n.metrics.RecordPingSent()
}
