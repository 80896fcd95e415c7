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

package server

import (
	"net/http"
	"time"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// streamInterval is how often a socket writer drains its bus.
const streamInterval = time.Second

// upgrader promotes HTTP requests to WebSocket connections. The
// consoles that consume these streams are served from other origins.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamHandler upgrades the request and relays bus messages until the
// client goes away.
func (s *Server) streamHandler(b *bus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			// Upgrade has already answered the request.
			log.WithError(err).Debug("websocket upgrade failed")
			return
		}
		wsConnections.WithLabelValues(b.Name()).Inc()
		defer wsConnections.WithLabelValues(b.Name()).Dec()
		streamBus(conn, b)
	}
}

func streamBus(conn *websocket.Conn, b *bus.Bus) {
	defer func() { _ = conn.Close() }()

	// The reader discards client frames; it unblocks when the peer
	// closes or the connection drops.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-ticker.C:
			msgs := b.Drain()
			if len(msgs) == 0 {
				// Keepalive, so that idle consumers can tell a quiet
				// stream from a stalled one.
				if err := conn.WriteMessage(websocket.TextMessage, []byte("{}")); err != nil {
					return
				}
				continue
			}
			for _, msg := range msgs {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.String())); err != nil {
					return
				}
				wsMessages.WithLabelValues(b.Name()).Inc()
			}
		}
	}
}
