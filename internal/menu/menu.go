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

// Package menu is the interactive console, a local alternative to the
// API server for provisioning objects and steering the sync engine.
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/engine"
	"github.com/dahateb/crm-sync/internal/setup"
	"github.com/pkg/errors"
)

// A level tracks which listing or submenu the previous input selected,
// since the numeric commands repeat between submenus.
type level int

const (
	levelMain level = iota
	levelSetup
	levelSync
	levelSelect
	levelDelete
	levelStatus
)

// statusInterval is how often the status stream drains the sync bus.
const statusInterval = 500 * time.Millisecond

// Menu drives the console.
type Menu struct {
	buses  *bus.Buses
	engine *engine.Engine
	setup  *setup.Setup
	in     io.Reader
	out    io.Writer

	// logStop is non-nil while the status stream is printing. It is
	// only touched from the console loop.
	logStop chan struct{}
}

// New constructs a console attached to the process's stdio.
func New(eng *engine.Engine, set *setup.Setup, buses *bus.Buses) *Menu {
	return &Menu{
		buses:  buses,
		engine: eng,
		setup:  set,
		in:     os.Stdin,
		out:    os.Stdout,
	}
}

// Run executes the console until the user exits or input ends. The
// sync engine ticks in the background for the life of the console.
func (m *Menu) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.engine.Run(ctx)
	}()

	err := m.console(ctx)
	cancel()
	if runErr := <-done; err == nil {
		err = runErr
	}
	return err
}

func (m *Menu) console(ctx context.Context) error {
	in := bufio.NewScanner(m.in)
	state := levelMain
	m.mainMenu()
	for in.Scan() {
		m.stopLog()
		var quit bool
		state, quit = m.dispatch(ctx, state, strings.TrimSpace(in.Text()))
		if quit {
			return nil
		}
	}
	m.stopLog()
	return errors.Wrap(in.Err(), "console input failed")
}

// dispatch runs one command and returns the level the next input will
// be interpreted at.
func (m *Menu) dispatch(ctx context.Context, state level, line string) (level, bool) {
	switch state {
	case levelSelect:
		m.provision(ctx, line)
	case levelDelete:
		m.remove(ctx, line)
	case levelStatus:
		// Any input ends the status stream.
	case levelSetup:
		switch line {
		case "4":
			m.listRemote(ctx)
			return levelSelect, false
		case "5":
			m.listLocal(ctx)
			return levelDelete, false
		}
	case levelSync:
		switch line {
		case "1":
			fmt.Fprintln(m.out, "Starting ... ")
			if err := m.engine.Start(ctx); err != nil {
				fmt.Fprintf(m.out, "Error: %s\n", err)
			}
		case "2":
			fmt.Fprintln(m.out, "Stopping ... ")
			if err := m.engine.Stop(ctx); err != nil {
				fmt.Fprintf(m.out, "Error: %s\n", err)
			}
		case "3":
			if m.engine.Running() {
				fmt.Fprintln(m.out, "Status: ")
				m.startLog()
				return levelStatus, false
			}
			fmt.Fprintln(m.out, "Sync not running")
		}
	default:
		switch line {
		case "1":
			m.setupMenu()
			return levelSetup, false
		case "2":
			m.syncMenu()
			return levelSync, false
		case "3":
			fmt.Fprintln(m.out, "Exiting ...")
			return state, true
		}
	}
	m.mainMenu()
	return levelMain, false
}

func (m *Menu) mainMenu() {
	fmt.Fprintln(m.out, "Syncher:")
	fmt.Fprintln(m.out, "1. Setup")
	fmt.Fprintln(m.out, "2. Sync")
	fmt.Fprintln(m.out, "3. Exit")
}

func (m *Menu) setupMenu() {
	fmt.Fprintln(m.out, "Setup:")
	fmt.Fprintln(m.out, "4. List available Objects")
	fmt.Fprintln(m.out, "5. Show synchronized Objects")
}

func (m *Menu) syncMenu() {
	fmt.Fprintln(m.out, "Synch:")
	fmt.Fprintln(m.out, "1. Start Synch")
	fmt.Fprintln(m.out, "2. Stop Synch")
	fmt.Fprintln(m.out, "3. Show Status")
}

func (m *Menu) listRemote(ctx context.Context) {
	fmt.Fprintln(m.out, "List:")
	err := m.setup.ListRemoteObjects(ctx, func(e setup.RemoteObjectEntry) {
		fmt.Fprintf(m.out, "%d.\t%-40s\tsynched: %t\n", e.Num, e.Name, e.Synched)
	})
	if err != nil {
		fmt.Fprintf(m.out, "Error: %s\n", err)
		return
	}
	fmt.Fprintln(m.out, "Select Object:")
}

func (m *Menu) listLocal(ctx context.Context) {
	fmt.Fprintln(m.out, "Selected Objects")
	err := m.setup.ListDBObjects(ctx, func(e setup.DBObjectEntry) {
		fmt.Fprintf(m.out, "%d.\t%-40s\t%d rows\n", e.Num, e.Name, e.Count)
	})
	if err != nil {
		fmt.Fprintf(m.out, "Error: %s\n", err)
	}
}

// provision mirrors the object at the 1-based index in the last remote
// listing, printing a dot per progress event.
func (m *Menu) provision(ctx context.Context, line string) {
	index, err := strconv.Atoi(line)
	if err != nil {
		fmt.Fprintln(m.out, "Input invalid")
		return
	}
	var rows int64
	err = m.setup.ProvisionRemoteObject(ctx, index, true, func(_ string, count int64) {
		fmt.Fprint(m.out, ".")
		rows = count
	})
	fmt.Fprintln(m.out)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %s\n", err)
		return
	}
	fmt.Fprintf(m.out, "Synched %d rows\n", rows)
}

func (m *Menu) remove(ctx context.Context, line string) {
	index, err := strconv.Atoi(line)
	if err != nil {
		fmt.Fprintln(m.out, "Input invalid")
		return
	}
	name, err := m.setup.DeleteDBObject(ctx, index)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %s\n", err)
		return
	}
	fmt.Fprintf(m.out, "Deleted Object: %s\n", name)
}

// startLog prints sync progress until the next console input.
func (m *Menu) startLog() {
	stop := make(chan struct{})
	m.logStop = stop
	go func() {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				for _, msg := range m.buses.Sync.Drain() {
					fmt.Fprintln(m.out, msg.String())
				}
			}
		}
	}()
}

func (m *Menu) stopLog() {
	if m.logStop != nil {
		close(m.logStop)
		m.logStop = nil
	}
}
