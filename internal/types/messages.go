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

package types

import "time"

// MessageKind discriminates the members of the Message union on the
// wire.
type MessageKind string

// The message kinds emitted over the internal buses.
const (
	MessageSync    MessageKind = "sync"
	MessageTrigger MessageKind = "trigger"
	MessageSetup   MessageKind = "setup"
)

// A Message is a progress or status event published on an internal
// bus and relayed to HTTP and WebSocket consumers as JSON.
type Message interface {
	Kind() MessageKind
	// String returns the JSON encoding of the message.
	String() string
}

var (
	_ Message = (*SyncMessage)(nil)
	_ Message = (*TriggerMessage)(nil)
	_ Message = (*SetupMessage)(nil)
)

// A SyncMessage reports sync-engine progress for one object.
type SyncMessage struct {
	Type    MessageKind `json:"type"`
	Message string      `json:"message"`
	Object  string      `json:"object,omitempty"`
	Count   int64       `json:"count"`
}

// NewSyncMessage returns a sync progress message.
func NewSyncMessage(text, object string, count int64) *SyncMessage {
	return &SyncMessage{Type: MessageSync, Message: text, Object: object, Count: count}
}

// Kind implements Message.
func (m *SyncMessage) Kind() MessageKind { return MessageSync }

func (m *SyncMessage) String() string { return marshalMessage(m) }

// A TriggerMessage reports on work triggered through the control
// plane, carrying the elapsed wall time of the operation so far.
type TriggerMessage struct {
	Type          MessageKind `json:"type"`
	Message       string      `json:"message"`
	Count         int64       `json:"count"`
	ElapsedMillis int64       `json:"elapsed_ms"`
}

// NewTriggerMessage returns a trigger progress message.
func NewTriggerMessage(text string, count int64, elapsed time.Duration) *TriggerMessage {
	return &TriggerMessage{
		Type:          MessageTrigger,
		Message:       text,
		Count:         count,
		ElapsedMillis: elapsed.Milliseconds(),
	}
}

// Kind implements Message.
func (m *TriggerMessage) Kind() MessageKind { return MessageTrigger }

func (m *TriggerMessage) String() string { return marshalMessage(m) }

// A SetupMessage reports provisioning progress.
type SetupMessage struct {
	Type    MessageKind `json:"type"`
	Message string      `json:"message"`
	Count   int64       `json:"count"`
}

// NewSetupMessage returns a provisioning progress message.
func NewSetupMessage(text string, count int64) *SetupMessage {
	return &SetupMessage{Type: MessageSetup, Message: text, Count: count}
}

// Kind implements Message.
func (m *SetupMessage) Kind() MessageKind { return MessageSetup }

func (m *SetupMessage) String() string { return marshalMessage(m) }

func marshalMessage(m Message) string {
	data, err := json.Marshal(m)
	if err != nil {
		// The message structs contain only scalars.
		return `{"type":"` + string(m.Kind()) + `"}`
	}
	return string(data)
}
