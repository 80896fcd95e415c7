// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/dahateb/crm-sync/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "server_request_duration_seconds",
		Help:    "the length of time to answer a control plane request",
		Buckets: metrics.LatencyBuckets,
	}, []string{"method"})
	triggerDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "server_trigger_duration_seconds",
		Help: "the length of time to run a queued setup job",
		// Backfills of large objects run for minutes.
		Buckets: prometheus.ExponentialBucketsRange(0.01, 600, 20),
	}, []string{"kind"})
	triggerJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "server_trigger_jobs_total",
		Help: "the number of setup jobs accepted by the control plane",
	}, []string{"kind"})
	wsConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "server_ws_connections",
		Help: "the number of connected WebSocket consumers",
	}, metrics.BusLabels)
	wsMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "server_ws_messages_total",
		Help: "the number of messages relayed to WebSocket consumers",
	}, metrics.BusLabels)
)
