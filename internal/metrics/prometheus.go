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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	// M17 controller metrics
	FramesTotal           *prometheus.CounterVec
	DecodeErrorsTotal     *prometheus.CounterVec
	WatchdogTimeoutsTotal *prometheus.CounterVec

	// M17 network metrics
	NetworkConnected prometheus.Gauge
	PingsSentTotal   prometheus.Counter
	QueueDropsTotal  prometheus.Counter

	// Host metrics
	ModeChangesTotal  *prometheus.CounterVec
	BufferDropsTotal  *prometheus.CounterVec
	ModemStatusErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "m17_frames_total",
			Help: "The total number of M17 frames processed per side",
		}, []string{"side", "kind"}),
		DecodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "m17_decode_errors_total",
			Help: "The total number of M17 frames dropped due to decode errors",
		}, []string{"side"}),
		WatchdogTimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "m17_watchdog_timeouts_total",
			Help: "The total number of transmissions terminated by the watchdog",
		}, []string{"side"}),
		NetworkConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "m17_network_connected",
			Help: "Whether the M17 gateway has answered the ping handshake",
		}),
		PingsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "m17_network_pings_sent_total",
			Help: "The total number of keepalive pings sent to the gateway",
		}),
		QueueDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "m17_network_queue_drops_total",
			Help: "The total number of inbound datagrams dropped on queue overflow",
		}),
		ModeChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "host_mode_changes_total",
			Help: "The total number of transitions into each operating mode",
		}, []string{"mode"}),
		BufferDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modem_buffer_drops_total",
			Help: "The total number of modem payloads dropped on ring overflow",
		}, []string{"mode"}),
		ModemStatusErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modem_status_errors_total",
			Help: "The total number of status polls reporting a modem error",
		}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.FramesTotal)
	prometheus.MustRegister(m.DecodeErrorsTotal)
	prometheus.MustRegister(m.WatchdogTimeoutsTotal)
	prometheus.MustRegister(m.NetworkConnected)
	prometheus.MustRegister(m.PingsSentTotal)
	prometheus.MustRegister(m.QueueDropsTotal)
	prometheus.MustRegister(m.ModeChangesTotal)
	prometheus.MustRegister(m.BufferDropsTotal)
	prometheus.MustRegister(m.ModemStatusErrors)
}

// All record methods are nil-safe so components can run uninstrumented,
// which keeps tests free of duplicate collector registration.

func (m *Metrics) RecordFrame(side, kind string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(side, kind).Inc()
}

func (m *Metrics) RecordDecodeError(side string) {
	if m == nil {
		return
	}
	m.DecodeErrorsTotal.WithLabelValues(side).Inc()
}

func (m *Metrics) RecordWatchdogTimeout(side string) {
	if m == nil {
		return
	}
	m.WatchdogTimeoutsTotal.WithLabelValues(side).Inc()
}

func (m *Metrics) SetNetworkConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.NetworkConnected.Set(1)
	} else {
		m.NetworkConnected.Set(0)
	}
}

func (m *Metrics) RecordPingSent() {
	if m == nil {
		return
	}
	m.PingsSentTotal.Inc()
}

func (m *Metrics) RecordQueueDrop() {
	if m == nil {
		return
	}
	m.QueueDropsTotal.Inc()
}

func (m *Metrics) RecordModeChange(mode string) {
	if m == nil {
		return
	}
	m.ModeChangesTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordBufferDrop(mode string) {
	if m == nil {
		return
	}
	m.BufferDropsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordModemStatusError() {
	if m == nil {
		return
	}
	m.ModemStatusErrors.Inc()
}
