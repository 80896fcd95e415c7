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

// Package bus provides the bounded message channels that connect the
// sync engine and the provisioning worker to the HTTP control plane.
//
// A bus is deliberately lossy: producers never block on slow or absent
// consumers. When a bus fills up, the oldest half of the backlog is
// discarded to make room, so a consumer that reconnects after a long
// absence sees recent progress instead of stale history.
package bus

import (
	"github.com/dahateb/crm-sync/internal/types"
	log "github.com/sirupsen/logrus"
)

// DefaultCapacity is the backlog size used by the control plane buses.
const DefaultCapacity = 1000

// A Bus is a bounded, lossy FIFO of progress messages.
type Bus struct {
	name string
	ch   chan types.Message
}

// New constructs a Bus. Non-positive capacities fall back to
// DefaultCapacity.
func New(name string, capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{name: name, ch: make(chan types.Message, capacity)}
}

// Name identifies the bus in logs and metrics.
func (b *Bus) Name() string { return b.name }

// Len returns the number of queued messages.
func (b *Bus) Len() int { return len(b.ch) }

// Send enqueues msg without blocking. A full bus sheds the oldest half
// of its backlog first; the return value reports whether msg was
// enqueued.
func (b *Bus) Send(msg types.Message) bool {
	select {
	case b.ch <- msg:
		busSentMessages.WithLabelValues(b.name).Inc()
		return true
	default:
	}

	var dropped int
shed:
	for i := 0; i < cap(b.ch)/2; i++ {
		select {
		case <-b.ch:
			dropped++
		default:
			break shed
		}
	}
	if dropped > 0 {
		busDroppedMessages.WithLabelValues(b.name).Add(float64(dropped))
		log.Warnf("bus %s overflowed, shed %d queued messages", b.name, dropped)
	}

	select {
	case b.ch <- msg:
		busSentMessages.WithLabelValues(b.name).Inc()
		return true
	default:
		// Only reachable when racing producers refill the shed
		// capacity first.
		busDroppedMessages.WithLabelValues(b.name).Inc()
		return false
	}
}

// TryRecv dequeues one message without blocking.
func (b *Bus) TryRecv() (types.Message, bool) {
	select {
	case msg := <-b.ch:
		return msg, true
	default:
		return nil, false
	}
}

// Drain dequeues every message currently queued, in arrival order.
func (b *Bus) Drain() []types.Message {
	var out []types.Message
	for {
		select {
		case msg := <-b.ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}

// Buses groups the control plane channels.
type Buses struct {
	// Messages carries provisioning progress and trigger outcomes.
	Messages *Bus
	// Sync carries the engine's per-tick progress.
	Sync *Bus
}
