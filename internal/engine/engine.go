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

// Package engine runs the periodic bidirectional synchronization. A
// supervisor fires a tick at the configured interval; while the engine
// is toggled on, each tick runs the ingress worker (remote changes
// into the mirror) and the egress worker (local changes back to the
// remote service) on their own goroutines. A worker whose previous
// pass is still in flight skips the tick instead of piling up.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/types"
	log "github.com/sirupsen/logrus"
)

// A Worker is one direction of the sync flow, run once per tick.
// Implementations embed passState so the engine can serialize their
// passes.
type Worker interface {
	fmt.Stringer

	// Execute runs a single pass. The engine never invokes it
	// concurrently with itself.
	Execute(ctx context.Context) error
	// Start acquires resources the worker holds between passes.
	Start(ctx context.Context) error
	// Stop releases the resources held between passes.
	Stop(ctx context.Context) error
	// Running reports whether a pass is currently in flight.
	Running() bool
	// Timeout bounds a single pass.
	Timeout() time.Duration
}

// passState tracks a worker's in-flight pass.
type passState struct {
	busy atomic.Bool
}

// Running implements Worker.
func (s *passState) Running() bool { return s.busy.Load() }

func (s *passState) begin() bool { return s.busy.CompareAndSwap(false, true) }
func (s *passState) end()        { s.busy.Store(false) }

type passTracker interface {
	begin() bool
	end()
}

// Engine supervises the sync workers. It is safe for concurrent use;
// Start and Stop may be called from request handlers while Run ticks
// on its own goroutine.
type Engine struct {
	interval time.Duration
	events   *bus.Bus
	workers  []Worker

	mu struct {
		sync.Mutex
		running bool
		active  context.Context // canceled by Stop
		cancel  context.CancelFunc
	}
}

// New constructs an Engine ticking at the given interval. Messages and
// worker errors are published to events.
func New(interval time.Duration, events *bus.Bus, workers ...Worker) *Engine {
	return &Engine{interval: interval, events: events, workers: workers}
}

// Running reports whether the engine is toggled on.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mu.running
}

// Start toggles the engine on and brings up the workers. Starting a
// running engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mu.running {
		return nil
	}
	for i, w := range e.workers {
		if err := w.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if stopErr := e.workers[j].Stop(ctx); stopErr != nil {
					log.WithError(stopErr).Warnf("%s worker failed to stop", e.workers[j])
				}
			}
			return err
		}
	}
	// Worker passes outlive the request that started the engine.
	active, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.mu.active, e.mu.cancel = active, cancel
	e.mu.running = true
	log.Info("sync started")
	return nil
}

// Stop toggles the engine off, cancels any in-flight passes, and tears
// the workers down. Stopping a stopped engine is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mu.running {
		return nil
	}
	e.mu.running = false
	e.mu.cancel()

	var lastErr error
	for _, w := range e.workers {
		if err := w.Stop(ctx); err != nil {
			log.WithError(err).Warnf("%s worker failed to stop", w)
			lastErr = err
		}
	}
	log.Info("sync stopped")
	return lastErr
}

// Run ticks until ctx is canceled. The engine stays idle until Start
// toggles it on.
func (e *Engine) Run(ctx context.Context) error {
	log.Infof("sync engine ticking every %s", e.interval)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	defer func() {
		if err := e.Stop(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("engine shutdown was not clean")
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	e.mu.Lock()
	running, active := e.mu.running, e.mu.active
	e.mu.Unlock()
	if !running {
		return
	}
	engineTicks.Inc()

	for _, w := range e.workers {
		w := w
		tracker, _ := w.(passTracker)
		if tracker != nil && !tracker.begin() {
			workerOverruns.WithLabelValues(w.String()).Inc()
			log.Warnf("%s worker still busy from an earlier tick, skipping", w)
			continue
		}
		go func() {
			if tracker != nil {
				defer tracker.end()
			}
			execCtx, cancel := context.WithTimeout(active, w.Timeout())
			defer cancel()

			start := time.Now()
			if err := w.Execute(execCtx); err != nil {
				workerErrors.WithLabelValues(w.String()).Inc()
				log.WithError(err).Errorf("%s worker failed", w)
				e.events.Send(types.NewSyncMessage(
					fmt.Sprintf("Error: %s", err), w.String(), 0))
				return
			}
			workerDurations.WithLabelValues(w.String()).Observe(time.Since(start).Seconds())
		}()
	}
}
