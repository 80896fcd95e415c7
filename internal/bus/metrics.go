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

package bus

import (
	"github.com/dahateb/crm-sync/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	busDroppedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_dropped_messages_total",
		Help: "the number of messages shed because a bus was full",
	}, metrics.BusLabels)
	busSentMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_sent_messages_total",
		Help: "the number of messages enqueued on a bus",
	}, metrics.BusLabels)
)
