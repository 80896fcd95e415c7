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
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/mirrortest"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorker struct {
	passState
	name   string
	execs  atomic.Int32
	starts atomic.Int32
	stops  atomic.Int32
	block  chan struct{} // Execute blocks until closed when non-nil
	err    error
}

var _ Worker = (*fakeWorker)(nil)

func (w *fakeWorker) String() string { return w.name }

func (w *fakeWorker) Timeout() time.Duration { return time.Second }

func (w *fakeWorker) Start(ctx context.Context) error {
	w.starts.Add(1)
	return nil
}

func (w *fakeWorker) Stop(ctx context.Context) error {
	w.stops.Add(1)
	return nil
}

func (w *fakeWorker) Execute(ctx context.Context) error {
	w.execs.Add(1)
	if w.block != nil {
		select {
		case <-w.block:
		case <-ctx.Done():
		}
	}
	return w.err
}

func TestEngineToggle(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	w := &fakeWorker{name: "fake"}
	e := New(5*time.Millisecond, bus.New("test", 100), w)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(runCtx) }()

	// Idle until toggled on.
	a.False(e.Running())
	time.Sleep(30 * time.Millisecond)
	a.Zero(w.execs.Load())

	r.NoError(e.Start(ctx))
	a.True(e.Running())
	a.Equal(int32(1), w.starts.Load())
	r.Eventually(func() bool { return w.execs.Load() > 0 },
		time.Second, 5*time.Millisecond)

	// Start and Stop are idempotent.
	r.NoError(e.Start(ctx))
	a.Equal(int32(1), w.starts.Load())

	r.NoError(e.Stop(ctx))
	a.False(e.Running())
	a.Equal(int32(1), w.stops.Load())
	r.NoError(e.Stop(ctx))
	a.Equal(int32(1), w.stops.Load())

	cancel()
	r.NoError(<-done)
}

func TestEngineOverrunSkips(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	w := &fakeWorker{name: "slow", block: make(chan struct{})}
	e := New(5*time.Millisecond, bus.New("test", 100), w)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = e.Run(runCtx) }()

	r.NoError(e.Start(ctx))
	r.Eventually(func() bool { return w.execs.Load() == 1 },
		time.Second, 5*time.Millisecond)

	// Ticks keep firing while the first pass blocks; none of them may
	// start a second pass.
	time.Sleep(50 * time.Millisecond)
	a.Equal(int32(1), w.execs.Load())

	close(w.block)
	r.Eventually(func() bool { return w.execs.Load() >= 2 },
		time.Second, 5*time.Millisecond)
}

func TestEngineReportsWorkerError(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	events := bus.New("test", 100)
	w := &fakeWorker{name: "flaky", err: errors.New("boom")}
	e := New(5*time.Millisecond, events, w)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = e.Run(runCtx) }()
	r.NoError(e.Start(ctx))

	r.Eventually(func() bool {
		for _, msg := range events.Drain() {
			sm, ok := msg.(*types.SyncMessage)
			if ok && sm.Object == "flaky" && sm.Message == "Error: boom" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func ingressFixture() (*mirrortest.Sor, *mirrortest.Gateway, *bus.Bus) {
	first := &types.PullBatch{ObjectName: "account", NextURL: "/next/1"}
	first.Add("001A", types.Row{Columns: []string{"sfid", "name"}, Values: []string{"'001A'", "'Alpha'"}})
	first.Add("001B", types.Row{Columns: []string{"sfid", "name"}, Values: []string{"'001B'", "'Beta'"}})
	second := &types.PullBatch{ObjectName: "account", Done: true}
	second.Add("001C", types.Row{Columns: []string{"sfid", "name"}, Values: []string{"'001C'", "'Gamma'"}})

	sf := &mirrortest.Sor{
		Pages: map[string][]*types.PullBatch{
			"Account": {first, second},
		},
	}
	db := &mirrortest.Gateway{}
	db.Seed(&types.ObjectConfig{Name: "Account"})
	return sf, db, bus.New("test", 100)
}

func TestIngressPull(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	sf, db, events := ingressFixture()
	w := newIngress(sf, db, events)
	r.NoError(w.Execute(ctx))

	// The first page is upserted, later pages are treated as new.
	r.Equal([]time.Duration{time.Minute}, sf.Windows)
	r.Len(db.Upserted["account"], 1)
	a.Equal(2, db.Upserted["account"][0].Len())
	r.Len(db.Inserted["account"], 1)
	a.Equal(1, db.Inserted["account"][0].Len())

	// The high-water mark advances once, after all pages.
	r.Equal([]int64{1}, db.Touched)

	msgs := events.Drain()
	r.Len(msgs, 4)
	texts := make([]string, len(msgs))
	for i, msg := range msgs {
		sm := msg.(*types.SyncMessage)
		a.Equal("account", sm.Object)
		texts[i] = sm.Message
	}
	a.Equal([]string{
		"num rows to synch: 2",
		"Next Path: /next/1",
		"Synched 1 rows",
		"Done: 3 rows",
	}, texts)
	a.Equal(int64(3), msgs[3].(*types.SyncMessage).Count)
}

func TestIngressSkipsBrokenObject(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	only := &types.PullBatch{ObjectName: "account", Done: true}
	only.Add("001A", types.Row{Columns: []string{"sfid"}, Values: []string{"'001A'"}})
	sf := &mirrortest.Sor{
		Pages: map[string][]*types.PullBatch{"Account": {only}},
	}
	db := &mirrortest.Gateway{}
	db.Seed(&types.ObjectConfig{Name: "Broken"})
	db.Seed(&types.ObjectConfig{Name: "Account"})
	events := bus.New("test", 100)

	w := newIngress(sf, db, events)
	r.NoError(w.Execute(ctx))

	// The broken object is reported; the healthy one still syncs.
	r.Equal([]int64{2}, db.Touched)
	msgs := events.Drain()
	r.NotEmpty(msgs)
	first := msgs[0].(*types.SyncMessage)
	a.Equal("broken", first.Object)
	a.Contains(first.Message, "Error: ")
}

func TestEgressPush(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	db := &mirrortest.Gateway{
		Records: map[string][]*types.Record{
			"account": {
				{ID: 1, SFID: "001A", Fields: []types.RecordField{
					{Column: "name", Value: types.StringValue("Alpha")},
				}},
				{ID: 2, Fields: []types.RecordField{
					{Column: "name", Value: types.StringValue("New")},
				}},
			},
		},
	}
	sf := &mirrortest.Sor{
		Created: map[int64]string{2: "001NEW"},
		Failed:  map[int64]error{1: errors.New("ENTITY_IS_LOCKED")},
	}
	events := bus.New("test", 100)

	w := newEgress(sf, db, events)
	r.NoError(w.Start(ctx))
	a.True(db.Listening)

	db.Notifications = []string{"account::1", "account::2", "account::2", "bogus"}
	r.NoError(w.Execute(ctx))

	// One push per table, duplicates collapsed, malformed dropped.
	r.Len(sf.Pushed["account"], 1)
	r.Len(sf.Pushed["account"][0], 2)

	// Remote ids reconcile and rejected rows are flagged in place.
	a.Equal(map[int64]string{2: "001NEW"}, db.RemoteIDs["account"])
	r.Len(db.Flagged["account"], 1)
	a.Equal(mirrortest.RowError{ID: 1, Message: "ENTITY_IS_LOCKED"}, db.Flagged["account"][0])

	msgs := events.Drain()
	r.Len(msgs, 5)
	for _, msg := range msgs[:4] {
		a.Equal("triggered new db sync", msg.(*types.SyncMessage).Message)
	}
	last := msgs[4].(*types.SyncMessage)
	a.Equal("updated from db", last.Message)
	a.Equal("account", last.Object)
	a.Equal(int64(1), last.Count)

	r.NoError(w.Stop(ctx))
	a.False(db.Listening)
}

func TestEgressQuietPass(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	db := &mirrortest.Gateway{}
	sf := &mirrortest.Sor{}
	events := bus.New("test", 100)

	w := newEgress(sf, db, events)
	r.NoError(w.Start(ctx))
	r.NoError(w.Execute(ctx))
	a.Empty(events.Drain())
	a.Empty(sf.Pushed)

	db.DrainErr = errors.New("connection lost")
	r.EqualError(w.Execute(ctx), "connection lost")
}
