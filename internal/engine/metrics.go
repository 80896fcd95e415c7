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

package engine

import (
	"github.com/dahateb/crm-sync/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	egressRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_egress_rows_total",
		Help: "the number of locally-changed rows pushed to the remote service",
	}, metrics.ObjectLabels)
	engineTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_ticks_total",
		Help: "the number of ticks dispatched while the engine was running",
	})
	ingressRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_ingress_rows_total",
		Help: "the number of remote records applied to mirror tables",
	}, metrics.ObjectLabels)
	workerDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_worker_duration_seconds",
		Help:    "the length of time it took a worker to complete a pass",
		Buckets: metrics.LatencyBuckets,
	}, metrics.WorkerLabels)
	workerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_worker_errors_total",
		Help: "the number of worker passes that failed",
	}, metrics.WorkerLabels)
	workerOverruns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_worker_overruns_total",
		Help: "the number of ticks skipped because the previous pass was still in flight",
	}, metrics.WorkerLabels)
)
