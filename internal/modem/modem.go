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
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/M17Host/internal/m17"
	"github.com/USA-RedDragon/M17Host/internal/metrics"
)

var (
	ErrOpenModem      = errors.New("error opening modem")
	ErrVersionTimeout = errors.New("timed out waiting for modem version")
)

// Every modem frame is 0xE0, a 16-bit big-endian length covering the whole
// frame, a type byte, and the payload.
const (
	frameStart   = 0xE0
	headerLength = 4

	largestFrameSize = 600

	// How often the modem is polled for its status flags.
	statusInterval = 250 * time.Millisecond
	// How long Open waits for the version response.
	versionTimeout = time.Second
)

// Command and data type codes of the modem wire protocol.
const (
	cmdGetVersion    = 0x00
	cmdGetStatus     = 0x01
	cmdSetModes      = 0x02
	cmdSetRFParams   = 0x03
	cmdSetLevels     = 0x04
	cmdSetDMRParams  = 0x05
	cmdSetYSFParams  = 0x06
	cmdSetP25Params  = 0x07
	cmdSetNXDNParams = 0x08
	cmdWriteConfig   = 0x09
	cmdSetM17Params  = 0x0A
	cmdSetAX25Params = 0x0B
	cmdSetFMParams   = 0x0C
	cmdSendCWID      = 0x0E

	dataDStar1 = 0x20
	dataDStar2 = 0x21
	dataDMR1   = 0x22
	dataDMR2   = 0x23
	dataYSF    = 0x26
	dataP25    = 0x31
	dataNXDN   = 0x41
	dataFM     = 0x51
	dataAX25   = 0x55

	dataM17LinkSetup = 0x45
	dataM17Stream    = 0x46
	dataM17EOT       = 0x49
)

// Capability bits reported by the version response.
const (
	capPOCSAG = 0x10
	capAX25   = 0x01
)

// Read chunk sizes handed to the host per poll, sized to each mode's
// on-air unit.
const (
	ChunkDStar = 200
	ChunkDMR   = 33
	ChunkYSF   = 130
	ChunkP25   = 35
	ChunkNXDN  = 25
	ChunkM17   = 25
	ChunkFM    = 200
	ChunkAX25  = 300
)

// HardwareType identifies the modem board.
type HardwareType uint8

const (
	HardwareUnknown     HardwareType = 0x00
	HardwareMMDVM       HardwareType = 0x01
	HardwareDVMega      HardwareType = 0x02
	HardwareZUMspot     HardwareType = 0x03
	HardwareHSHat       HardwareType = 0x04
	HardwareHSDualHat   HardwareType = 0x05
	HardwareNanoHotspot HardwareType = 0x06
	HardwareNanoDV      HardwareType = 0x07
	HardwareD2RGMMDVMHS HardwareType = 0x08
	HardwareMMDVMHS     HardwareType = 0x09
	HardwareOpenGD77HS  HardwareType = 0x0A
	HardwareSkyBridge   HardwareType = 0x0B
)

func (h HardwareType) String() string {
	switch h {
	case HardwareMMDVM:
		return "MMDVM"
	case HardwareDVMega:
		return "DVMega"
	case HardwareZUMspot:
		return "ZUMspot"
	case HardwareHSHat:
		return "MMDVM_HS_Hat"
	case HardwareHSDualHat:
		return "MMDVM_HS_Dual_Hat"
	case HardwareNanoHotspot:
		return "Nano_hotSPOT"
	case HardwareNanoDV:
		return "Nano_DV"
	case HardwareD2RGMMDVMHS:
		return "D2RG_MMDVM_HS"
	case HardwareMMDVMHS:
		return "MMDVM_HS"
	case HardwareOpenGD77HS:
		return "OpenGD77_HS"
	case HardwareSkyBridge:
		return "SkyBridge"
	default:
		return "Unknown"
	}
}

// parserState is the state of the byte-driven frame parser.
type parserState int

const (
	parserStart parserState = iota
	parserLength1
	parserLength2
	parserType
	parserData
)

// Modem drives an MMDVM modem over a byte-streamed transport. A single
// receive worker feeds the frame parser, which demultiplexes per-mode
// payloads into bounded ring buffers drained by the host.
type Modem struct {
	transport transport
	metrics   *metrics.Metrics
	debug     bool

	running atomic.Bool
	wg      sync.WaitGroup
	writeMu sync.Mutex

	// Status flags latched from the most recent status response.
	tx      atomic.Bool
	cd      atomic.Bool
	lockout atomic.Bool
	errFlag atomic.Bool

	protocolVersion atomic.Uint32
	hwType          atomic.Uint32
	capabilities1   atomic.Uint32
	capabilities2   atomic.Uint32

	rxDStar *ring
	rxDMR1  *ring
	rxDMR2  *ring
	rxYSF   *ring
	rxP25   *ring
	rxNXDN  *ring
	rxM17   *ring
	rxFM    *ring
	rxAX25  *ring

	// Parser state, owned by the receive worker.
	state       parserState
	buffer      []byte
	frameLength int

	sinceStatus time.Duration
}

// NewUARTModem creates a modem attached over a serial port.
func NewUARTModem(port string, speed int, debug bool, metrics *metrics.Metrics) (*Modem, error) {
	t, err := openUART(port, speed)
	if err != nil {
		return nil, err
	}
	m := newModem(t, metrics)
	m.debug = debug
	return m, nil
}

// NewUDPModem creates a modem attached over UDP.
func NewUDPModem(address string, port int, debug bool, metrics *metrics.Metrics) (*Modem, error) {
	t, err := openUDP(address, port)
	if err != nil {
		return nil, err
	}
	m := newModem(t, metrics)
	m.debug = debug
	return m, nil
}

func newModem(t transport, m *metrics.Metrics) *Modem {
	return &Modem{
		transport: t,
		metrics:   m,
		rxDStar:   newRing("dstar", ringSize, m),
		rxDMR1:    newRing("dmr1", ringSize, m),
		rxDMR2:    newRing("dmr2", ringSize, m),
		rxYSF:     newRing("ysf", ringSize, m),
		rxP25:     newRing("p25", ringSize, m),
		rxNXDN:    newRing("nxdn", ringSize, m),
		rxM17:     newRing("m17", ringSize, m),
		rxFM:      newRing("fm", ringSize, m),
		rxAX25:    newRing("ax25", ringSize, m),
	}
}

// Open starts the receive worker and waits for the modem to report its
// version. A modem that stays silent for a second is treated as absent.
func (m *Modem) Open() error {
	m.running.Store(true)
	m.wg.Add(1)
	go m.rxLoop()

	if err := m.GetVersion(); err != nil {
		return err
	}

	deadline := time.Now().Add(versionTimeout)
	for time.Now().Before(deadline) {
		if m.protocolVersion.Load() > 0 {
			slog.Info("MMDVM modem found",
				"protocol", m.protocolVersion.Load(),
				"hardware", m.Hardware().String())
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return ErrVersionTimeout
}

// Close stops the receive worker and closes the transport.
func (m *Modem) Close() {
	m.running.Store(false)
	m.wg.Wait()
	if m.transport != nil {
		_ = m.transport.Close()
	}
}

// Clock polls the modem status every 250 ms.
func (m *Modem) Clock(elapsed time.Duration) {
	m.sinceStatus += elapsed
	if m.sinceStatus >= statusInterval {
		m.sinceStatus = 0
		if err := m.GetStatus(); err != nil {
			slog.Error("Error polling modem status", "error", err)
		}
	}
}

// Status flag accessors.
func (m *Modem) HasTX() bool { return m.tx.Load() }
func (m *Modem) HasCD() bool { return m.cd.Load() }
func (m *Modem) HasLockout() bool { return m.lockout.Load() }
func (m *Modem) HasError() bool { return m.errFlag.Load() }

// Hardware returns the modem board type from the version response.
func (m *Modem) Hardware() HardwareType {
	return HardwareType(m.hwType.Load())
}

// ProtocolVersion returns the modem protocol version, zero until the
// version response arrives.
func (m *Modem) ProtocolVersion() uint8 {
	return uint8(m.protocolVersion.Load())
}

// Per-mode reads, each draining one bounded chunk without blocking.
func (m *Modem) ReadDStarData() []byte { return m.rxDStar.read(ChunkDStar) }
func (m *Modem) ReadDMR1Data() []byte { return m.rxDMR1.read(ChunkDMR) }
func (m *Modem) ReadDMR2Data() []byte { return m.rxDMR2.read(ChunkDMR) }
func (m *Modem) ReadYSFData() []byte { return m.rxYSF.read(ChunkYSF) }
func (m *Modem) ReadP25Data() []byte { return m.rxP25.read(ChunkP25) }
func (m *Modem) ReadNXDNData() []byte { return m.rxNXDN.read(ChunkNXDN) }
func (m *Modem) ReadM17Data() []byte { return m.rxM17.read(ChunkM17) }
func (m *Modem) ReadFMData() []byte { return m.rxFM.read(ChunkFM) }
func (m *Modem) ReadAX25Data() []byte { return m.rxAX25.read(ChunkAX25) }

// WriteM17Frame sends a 48-byte M17 frame (or the EOT sentinel) to the
// modem, picking the command code from the leading sync word.
func (m *Modem) WriteM17Frame(data []byte) bool {
	var err error
	switch m17.KindOf(data) {
	case m17.FrameKindLinkSetup:
		err = m.writeCommand(dataM17LinkSetup, data)
	case m17.FrameKindStream:
		err = m.writeCommand(dataM17Stream, data)
	case m17.FrameKindEOT:
		err = m.writeCommand(dataM17EOT, nil)
	default:
		slog.Warn("Refusing to send M17 frame with unknown sync to modem")
		return false
	}
	if err != nil {
		slog.Error("Error writing M17 frame to modem", "error", err)
		return false
	}
	return true
}

func (m *Modem) rxLoop() {
	defer m.wg.Done()
	buf := make([]byte, 1024)
	for m.running.Load() {
		length, err := m.transport.Read(buf)
		if err != nil {
			if errors.Is(err, errReadTimeout) || errors.Is(err, io.EOF) {
				continue
			}
			if m.running.Load() {
				slog.Error("Error reading from modem", "error", err)
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		if length > 0 {
			m.processBytes(buf[:length])
		}
	}
}

// processBytes drives the frame parser. Bytes outside a frame are skipped
// until the next start byte.
func (m *Modem) processBytes(data []byte) {
	for _, b := range data {
		switch m.state {
		case parserStart:
			if b == frameStart {
				m.buffer = append(m.buffer[:0], b)
				m.frameLength = 0
				m.state = parserLength1
			}
		case parserLength1:
			m.frameLength = int(b) << 8
			m.buffer = append(m.buffer, b)
			m.state = parserLength2
		case parserLength2:
			m.frameLength |= int(b)
			m.buffer = append(m.buffer, b)
			if m.frameLength < headerLength || m.frameLength > largestFrameSize {
				slog.Debug("Dropping modem frame with invalid length", "length", m.frameLength)
				m.state = parserStart
				continue
			}
			m.state = parserType
		case parserType:
			m.buffer = append(m.buffer, b)
			if m.frameLength <= headerLength {
				m.processFrame(m.buffer)
				m.state = parserStart
				continue
			}
			m.state = parserData
		case parserData:
			m.buffer = append(m.buffer, b)
			if len(m.buffer) >= m.frameLength {
				m.processFrame(m.buffer)
				m.state = parserStart
			}
		}
	}
}

// processFrame dispatches one complete frame by its type byte.
func (m *Modem) processFrame(frame []byte) {
	if len(frame) < headerLength {
		return
	}
	payload := frame[headerLength:]

	if m.debug {
		slog.Debug("Modem frame", "type", frame[3], "length", len(frame))
	}

	switch frame[3] {
	case cmdGetVersion:
		if len(payload) < 3 {
			return
		}
		m.protocolVersion.Store(uint32(payload[0]))
		m.hwType.Store(uint32(payload[1]))
		m.capabilities1.Store(uint32(payload[2]))
		if len(payload) > 3 {
			m.capabilities2.Store(uint32(payload[3]))
		}
	case cmdGetStatus:
		if len(payload) < 1 {
			return
		}
		m.tx.Store(payload[0]&0x01 != 0)
		m.cd.Store(payload[0]&0x02 != 0)
		m.lockout.Store(payload[0]&0x04 != 0)
		hadError := payload[0]&0x08 != 0
		if hadError && !m.errFlag.Load() {
			m.metrics.RecordModemStatusError()
		}
		m.errFlag.Store(hadError)
	case dataDStar1, dataDStar2:
		m.rxDStar.write(payload)
	case dataDMR1:
		m.rxDMR1.write(payload)
	case dataDMR2:
		m.rxDMR2.write(payload)
	case dataYSF:
		m.rxYSF.write(payload)
	case dataP25:
		m.rxP25.write(payload)
	case dataNXDN:
		m.rxNXDN.write(payload)
	case dataM17LinkSetup, dataM17Stream:
		m.rxM17.write(payload)
	case dataM17EOT:
		// The EOT command carries no payload; hand the controller a
		// full-length frame bearing the EOT sync word.
		m.rxM17.write(m17.EOTFrame())
	case dataFM:
		m.rxFM.write(payload)
	case dataAX25:
		m.rxAX25.write(payload)
	default:
		slog.Debug("Ignoring modem frame", "type", frame[3], "length", len(frame))
	}
}
