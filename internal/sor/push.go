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

package sor

import (
	"context"
	"fmt"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// PushRecords implements types.SorClient. Each record is sent in its
// own request: rows that already carry a remote id are PATCHed in
// place, rows without one are POSTed and the newly-assigned id is
// collected for write-back. A failed record never aborts the batch;
// its error is reported in the failed map so the caller can mark the
// mirror row.
func (c *Client) PushRecords(
	ctx context.Context, objectName string, recs []*types.Record,
) (created map[int64]string, failed map[int64]error) {
	created = make(map[int64]string)
	failed = make(map[int64]error)

	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			failed[rec.ID] = errors.Wrap(err, "could not encode record")
			continue
		}

		if rec.SFID != "" {
			if _, err := c.Patch(ctx, string(data), func(instance string) string {
				return fmt.Sprintf(updateTemplate, instance, c.cfg.APIVersion, objectName, rec.SFID)
			}); err != nil {
				failed[rec.ID] = err
			}
			continue
		}

		body, err := c.Post(ctx, string(data), func(instance string) string {
			return fmt.Sprintf(createTemplate, instance, c.cfg.APIVersion, objectName)
		})
		if err != nil {
			failed[rec.ID] = err
			continue
		}
		var result struct {
			ID      string `json:"id"`
			Success bool   `json:"success"`
		}
		if err := json.Unmarshal([]byte(body), &result); err != nil {
			failed[rec.ID] = errors.Wrap(err, "could not decode create response")
			continue
		}
		created[rec.ID] = result.ID
	}

	if len(failed) > 0 {
		log.WithFields(log.Fields{
			"object": objectName,
			"failed": len(failed),
			"pushed": len(recs) - len(failed),
		}).Warn("some records were rejected by the remote service")
	}
	return created, failed
}
