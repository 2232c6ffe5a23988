// metrics.go - Management metrics endpoint.
// Copyright (C) 2025  Alen Jiji.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package metrics exposes the observability counters over a prometheus
// endpoint.  It lives outside the obs tree on purpose: obs itself stays
// free of network and clock imports, and this bridge only re-publishes
// what obs chooses to export at the compiled level.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/op/go-logging.v1"

	"github.com/alenjiji/ebtunnel/core/log"
	"github.com/alenjiji/ebtunnel/obs"
)

var (
	healthDesc = prometheus.NewDesc(
		"ebtunnel_health_state",
		"Pipeline health (0 ok, 1 degraded, 2 faulted).",
		nil, nil)
	connectionsOpenedDesc = prometheus.NewDesc(
		"ebtunnel_connections_opened_total",
		"Connections opened since process start.",
		nil, nil)
	connectionsClosedDesc = prometheus.NewDesc(
		"ebtunnel_connections_closed_total",
		"Connections closed since process start.",
		nil, nil)
	framesSentDesc = prometheus.NewDesc(
		"ebtunnel_frames_sent_total",
		"Frames written to transports since process start.",
		nil, nil)
	framesReceivedDesc = prometheus.NewDesc(
		"ebtunnel_frames_received_total",
		"Frames decoded from transports since process start.",
		nil, nil)
	bytesSentDesc = prometheus.NewDesc(
		"ebtunnel_bytes_sent_coarse",
		"Outbound writes by power-of-two length bucket.",
		[]string{"bucket"}, nil)
	bytesReceivedDesc = prometheus.NewDesc(
		"ebtunnel_bytes_received_coarse",
		"Inbound reads by power-of-two length bucket.",
		[]string{"bucket"}, nil)
	errorsDesc = prometheus.NewDesc(
		"ebtunnel_errors_total",
		"Errors by class.",
		[]string{"class"}, nil)
)

var errorClassNames = [...]string{
	"protocol_violation",
	"transport_io",
	"resource_limit",
	"internal_assert",
}

type obsCollector struct{}

func (obsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- healthDesc
	ch <- connectionsOpenedDesc
	ch <- connectionsClosedDesc
	ch <- framesSentDesc
	ch <- framesReceivedDesc
	ch <- bytesSentDesc
	ch <- bytesReceivedDesc
	ch <- errorsDesc
}

func (obsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(healthDesc, prometheus.GaugeValue, float64(obs.Health()))

	// The full counter set only exists in DEV builds.
	snap := obs.Take()
	if snap == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(connectionsOpenedDesc, prometheus.CounterValue, float64(snap.ConnectionsOpened))
	ch <- prometheus.MustNewConstMetric(connectionsClosedDesc, prometheus.CounterValue, float64(snap.ConnectionsClosed))
	ch <- prometheus.MustNewConstMetric(framesSentDesc, prometheus.CounterValue, float64(snap.FramesSent))
	ch <- prometheus.MustNewConstMetric(framesReceivedDesc, prometheus.CounterValue, float64(snap.FramesReceived))

	for i, v := range snap.BytesSentCoarse {
		ch <- prometheus.MustNewConstMetric(bytesSentDesc, prometheus.CounterValue, float64(v), strconv.Itoa(i))
	}
	for i, v := range snap.BytesReceivedCoarse {
		ch <- prometheus.MustNewConstMetric(bytesReceivedDesc, prometheus.CounterValue, float64(v), strconv.Itoa(i))
	}
	for i, v := range snap.ErrorClassCounts {
		name := "unknown"
		if i < len(errorClassNames) {
			name = errorClassNames[i]
		}
		ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(v), name)
	}
}

// Server serves the metrics endpoint.
type Server struct {
	l   *logging.Logger
	srv *http.Server
}

// NewServer starts serving metrics on the given address.
func NewServer(address string, logBackend *log.Backend) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(obsCollector{})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s := &Server{
		l: logBackend.GetLogger("metrics"),
		srv: &http.Server{
			Addr:    address,
			Handler: mux,
		},
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.l.Errorf("Metrics listener failure: %v", err)
		}
	}()
	return s
}

// Halt shuts the metrics endpoint down.
func (s *Server) Halt() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}
