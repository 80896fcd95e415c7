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

package sor

import (
	"github.com/dahateb/crm-sync/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sorRequestDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sor_request_duration_seconds",
		Help:    "the length of time it took to complete a remote API call",
		Buckets: metrics.LatencyBuckets,
	}, []string{"method"})
	sorRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sor_request_errors_total",
		Help: "the number of remote API calls that failed or were rejected",
	}, []string{"method"})
)
