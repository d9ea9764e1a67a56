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

package modem

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/term"
)

// errReadTimeout marks a bounded read that expired with no data, so the
// receive worker can poll its running flag.
var errReadTimeout = errors.New("modem read timed out")

const transportReadTimeout = time.Second

// transport is the byte stream to the modem. Reads return errReadTimeout
// after at most a second so shutdown stays bounded.
type transport interface {
	io.ReadWriteCloser
}

// uartTransport is a serial attachment.
type uartTransport struct {
	port *term.Term
}

func openUART(device string, speed int) (transport, error) {
	port, err := term.Open(device, term.Speed(speed), term.RawMode, term.ReadTimeout(transportReadTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenModem, err)
	}
	return &uartTransport{port: port}, nil
}

func (t *uartTransport) Read(p []byte) (int, error) {
	n, err := t.port.Read(p)
	if err == nil && n == 0 {
		return 0, errReadTimeout
	}
	return n, err
}

func (t *uartTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *uartTransport) Close() error {
	return t.port.Close()
}

// udpTransport is a network attachment to a remote modem.
type udpTransport struct {
	conn *net.UDPConn
	peer *net.UDPAddr
}

func openUDP(address string, port int) (transport, error) {
	peer, err := net.ResolveUDPAddr("udp", net.JoinHostPort(address, fmt.Sprintf("%d", port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenModem, err)
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenModem, err)
	}
	return &udpTransport{conn: conn, peer: peer}, nil
}

func (t *udpTransport) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(transportReadTimeout)); err != nil {
		return 0, err
	}
	n, _, err := t.conn.ReadFromUDP(p)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, errReadTimeout
		}
		return 0, err
	}
	return n, nil
}

func (t *udpTransport) Write(p []byte) (int, error) {
	return t.conn.WriteToUDP(p, t.peer)
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}
