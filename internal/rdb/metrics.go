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

package rdb

import (
	"github.com/dahateb/crm-sync/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emptyRecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_empty_records_skipped_total",
		Help: "the number of mirror rows dropped from a push because they carried no data",
	}, metrics.ObjectLabels)
	mirrorWriteDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mirror_write_duration_seconds",
		Help:    "the length of time it took to successfully write a batch to a mirror table",
		Buckets: metrics.LatencyBuckets,
	}, metrics.ObjectLabels)
	mirrorWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_write_errors_total",
		Help: "the number of times a mirror table write failed",
	}, metrics.ObjectLabels)
	mirrorWriteRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_write_rows_total",
		Help: "the number of rows written to mirror tables",
	}, metrics.ObjectLabels)
	notificationsDrained = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirror_notifications_drained_total",
		Help: "the number of change notifications drained from the database",
	})
	provisionDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mirror_provision_duration_seconds",
		Help:    "the length of time it took to create a mirror table",
		Buckets: metrics.LatencyBuckets,
	}, metrics.ObjectLabels)
)
