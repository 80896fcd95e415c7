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

// Package ndrain contains utility functions for parsing and grouping
// drained batches of change-notification payloads.
package ndrain

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Change identifies one notified mirror row.
type Change struct {
	Table string
	ID    int64
}

// Parse splits a notification payload of the form "<table>::<id>".
func Parse(payload string) (Change, error) {
	table, id, ok := strings.Cut(payload, "::")
	if !ok || table == "" {
		return Change{}, errors.Errorf("malformed notification payload %q", payload)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Change{}, errors.Wrapf(err, "bad row id in notification payload %q", payload)
	}
	return Change{Table: table, ID: n}, nil
}

// A Group collects the notified row ids of a single table.
type Group struct {
	Table string
	IDs   []int64
}

// Collapse groups a drained payload batch by table, de-duplicating row
// ids within each table. Tables and ids retain their first-seen order,
// so the per-table fetches run in notification order. Malformed
// payloads are counted and dropped rather than failing the batch.
func Collapse(payloads []string) (groups []Group, skipped int) {
	// For any given table, track the index in the result slice that
	// holds its group, plus the ids already seen for it.
	groupIdx := make(map[string]int, len(payloads))
	seen := make(map[string]map[int64]struct{}, len(payloads))

	for _, p := range payloads {
		c, err := Parse(p)
		if err != nil {
			skipped++
			continue
		}
		gi, found := groupIdx[c.Table]
		if !found {
			gi = len(groups)
			groupIdx[c.Table] = gi
			groups = append(groups, Group{Table: c.Table})
			seen[c.Table] = make(map[int64]struct{})
		}
		if _, dup := seen[c.Table][c.ID]; dup {
			continue
		}
		seen[c.Table][c.ID] = struct{}{}
		groups[gi].IDs = append(groups[gi].IDs, c.ID)
	}
	return groups, skipped
}
