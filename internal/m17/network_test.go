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

package m17_test

import (
	"net"
	"testing"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/m17"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestNetwork opens a Network pointed at a loopback "gateway" socket
// and returns both.
func makeTestNetwork(t *testing.T) (*m17.Network, *net.UDPConn) {
	t.Helper()

	gateway, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gateway.Close() })

	gatewayAddr, ok := gateway.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	network := m17.NewNetwork(m17.NetworkConfig{
		LocalAddress:   "127.0.0.1",
		LocalPort:      0,
		GatewayAddress: "127.0.0.1",
		GatewayPort:    gatewayAddr.Port,
	}, nil)
	require.NoError(t, network.Open(t.Context()))
	t.Cleanup(func() { network.Close(t.Context()) })

	network.Enable(true)
	return network, gateway
}

// readDatagram reads one datagram from the gateway socket with a deadline.
func readDatagram(t *testing.T, gateway *net.UDPConn) ([]byte, *net.UDPAddr) {
	t.Helper()
	require.NoError(t, gateway.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	length, remote, err := gateway.ReadFromUDP(buf)
	require.NoError(t, err)
	return buf[:length], remote
}

func TestNetworkKeepalive(t *testing.T) {
	t.Parallel()
	network, gateway := makeTestNetwork(t)

	// One clock tick that reaches the interval sends exactly one ping.
	network.Clock(5 * time.Second)

	ping, remote := readDatagram(t, gateway)
	require.Len(t, ping, 3)
	assert.Equal(t, byte(0x00), ping[0])

	assert.False(t, network.IsConnected())

	// A ping response from the gateway establishes the connection.
	_, err := gateway.WriteToUDP([]byte{0x00, 0xBE, 0xEF}, remote)
	require.NoError(t, err)
	require.Eventually(t, network.IsConnected, 2*time.Second, 10*time.Millisecond)
}

func TestNetworkClockBelowIntervalSendsNothing(t *testing.T) {
	t.Parallel()
	network, gateway := makeTestNetwork(t)

	network.Clock(4 * time.Second)

	require.NoError(t, gateway.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 16)
	_, _, err := gateway.ReadFromUDP(buf)
	assert.Error(t, err, "no ping expected before the interval elapses")
}

func TestNetworkInboundQueue(t *testing.T) {
	t.Parallel()
	network, gateway := makeTestNetwork(t)

	// Learn the endpoint's address from its ping.
	network.Clock(5 * time.Second)
	_, remote := readDatagram(t, gateway)

	frame := streamFrameBytes(t, 1, false)
	_, err := gateway.WriteToUDP(frame, remote)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return network.Read() != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, network.Read(), "queue should be empty after the read")
}

func TestNetworkDiscardsUnknownPeer(t *testing.T) {
	t.Parallel()
	network, gateway := makeTestNetwork(t)

	network.Clock(5 * time.Second)
	_, remote := readDatagram(t, gateway)

	stranger, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer func() { _ = stranger.Close() }()

	// A ping response from the wrong peer must not connect.
	_, err = stranger.WriteToUDP([]byte{0x00, 0x12, 0x34}, remote)
	require.NoError(t, err)
	_, err = stranger.WriteToUDP(streamFrameBytes(t, 2, false), remote)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.False(t, network.IsConnected())
	assert.Nil(t, network.Read())
}

func TestNetworkWriteReachesGateway(t *testing.T) {
	t.Parallel()
	network, gateway := makeTestNetwork(t)

	frame := streamFrameBytes(t, 3, false)
	require.NoError(t, network.Write(frame))

	data, _ := readDatagram(t, gateway)
	assert.Equal(t, frame, data)
}

func TestNetworkDisabledNoTraffic(t *testing.T) {
	t.Parallel()
	network, _ := makeTestNetwork(t)
	network.Enable(false)

	assert.ErrorIs(t, network.Write([]byte{0x01}), m17.ErrNotOpen)
	assert.Nil(t, network.Read())
	assert.False(t, network.IsConnected())
}

func TestNetworkReset(t *testing.T) {
	t.Parallel()
	network, gateway := makeTestNetwork(t)

	network.Clock(5 * time.Second)
	_, remote := readDatagram(t, gateway)

	_, err := gateway.WriteToUDP([]byte{0x00, 0xBE, 0xEF}, remote)
	require.NoError(t, err)
	require.Eventually(t, network.IsConnected, 2*time.Second, 10*time.Millisecond)

	_, err = gateway.WriteToUDP(streamFrameBytes(t, 4, false), remote)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		// Reset drops both the connection and anything queued.
		network.Reset()
		return !network.IsConnected() && network.Read() == nil
	}, 2*time.Second, 10*time.Millisecond)
}
