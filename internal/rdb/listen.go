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
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// notifyChannel is the channel the trigger function installed by the
// bootstrap script publishes to. Payloads look like "account::42".
const notifyChannel = "salesforce_data"

// drainWait bounds how long a drain pass idles on the wire once the
// notification backlog is empty.
const drainWait = 250 * time.Millisecond

// ToggleListen implements types.Gateway. While listening, a pooled
// connection stays pinned so notifications queued by the server
// survive between drain passes. Toggling is idempotent.
func (g *Gateway) ToggleListen(ctx context.Context, on bool) error {
	g.listen.Lock()
	defer g.listen.Unlock()

	if on {
		if g.listen.conn != nil {
			return nil
		}
		conn, err := g.pool.Acquire(ctx)
		if err != nil {
			return errors.Wrap(err, "could not acquire a connection to listen on")
		}
		if _, err := conn.Exec(ctx, listenStmt); err != nil {
			conn.Release()
			return errors.Wrapf(err, "could not listen on %s", notifyChannel)
		}
		g.listen.conn = conn
		log.Infof("listening for local changes on %s", notifyChannel)
		return nil
	}

	if g.listen.conn == nil {
		return nil
	}
	// Unsubscribe before releasing, or the pool would hand the
	// subscription to the next caller. This must run even when the
	// surrounding context has been canceled by a shutdown.
	_, err := g.listen.conn.Exec(context.WithoutCancel(ctx), unlistenStmt)
	g.listen.conn.Release()
	g.listen.conn = nil
	log.Infof("stopped listening on %s", notifyChannel)
	return errors.Wrapf(err, "could not unlisten from %s", notifyChannel)
}

// DrainNotifications implements types.Gateway. It collects every
// notification already queued on the pinned connection and returns
// once the wire has stayed quiet for drainWait. A gateway that is not
// listening drains nothing.
func (g *Gateway) DrainNotifications(ctx context.Context) ([]string, error) {
	g.listen.Lock()
	defer g.listen.Unlock()

	if g.listen.conn == nil {
		return nil, nil
	}

	var payloads []string
	for {
		waitCtx, cancel := context.WithTimeout(ctx, drainWait)
		n, err := g.listen.conn.Conn().WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return payloads, errors.Wrap(err, "lost the notification connection")
		}
		log.Tracef("notification on %s: %s", n.Channel, n.Payload)
		payloads = append(payloads, n.Payload)
	}
	notificationsDrained.Add(float64(len(payloads)))
	return payloads, nil
}
