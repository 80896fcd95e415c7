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

// Package metrics contains helpers to standardize the configuration
// of prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LatencyBuckets is a collection of histogram buckets from 1 ms to
	// 1 minute for measuring I/O latencies.
	LatencyBuckets = prometheus.ExponentialBucketsRange(
		time.Millisecond.Seconds(), time.Minute.Seconds(), 20)

	// ObjectLabels are the labels to use for metrics that are reported
	// per mirrored object.
	ObjectLabels = []string{"object"}

	// WorkerLabels are the labels to use for metrics that are reported
	// per sync worker.
	WorkerLabels = []string{"worker"}

	// BusLabels are the labels to use for metrics that are reported per
	// message bus.
	BusLabels = []string{"bus"}
)
