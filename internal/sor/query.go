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
	"strconv"
	"strings"
	"time"

	"github.com/dahateb/crm-sync/internal/sqlbuild"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// The timestamp layout of SOQL filter expressions.
const soqlTimeLayout = "2006-01-02T15:04:05Z"

// QueryAllRecords implements types.SorClient.
func (c *Client) QueryAllRecords(
	ctx context.Context, sch types.ObjectSchema,
) (*types.PullBatch, error) {
	return c.runQuery(ctx, sch, soql(sch, time.Time{}))
}

// QueryUpdatedRecords implements types.SorClient.
func (c *Client) QueryUpdatedRecords(
	ctx context.Context, sch types.ObjectSchema, window time.Duration,
) (*types.PullBatch, error) {
	cutoff := time.Now().UTC().Add(-window)
	return c.runQuery(ctx, sch, soql(sch, cutoff))
}

// NextRecords implements types.SorClient. The continuation path
// returned by the remote service is resolved against the instance URL.
func (c *Client) NextRecords(
	ctx context.Context, sch types.ObjectSchema, prev *types.PullBatch,
) (*types.PullBatch, error) {
	if prev.Done {
		return nil, errors.Errorf("query of %s is already complete", prev.ObjectName)
	}
	if prev.NextURL == "" {
		return nil, errors.Errorf("query of %s has no continuation", prev.ObjectName)
	}
	log.Tracef("Next Path: %s", prev.NextURL)
	body, err := c.Get(ctx, func(instance string) string {
		return instance + prev.NextURL
	})
	if err != nil {
		return nil, err
	}
	return parseBatch(sch, body)
}

func (c *Client) runQuery(
	ctx context.Context, sch types.ObjectSchema, q string,
) (*types.PullBatch, error) {
	body, err := c.Get(ctx, func(instance string) string {
		return fmt.Sprintf(queryTemplate, instance, c.cfg.APIVersion, q)
	})
	if err != nil {
		return nil, err
	}
	return parseBatch(sch, body)
}

// soql renders the query string with + separators, the way it is
// embedded in the request URL. A zero cutoff selects all records.
func soql(sch types.ObjectSchema, cutoff time.Time) string {
	fields := sch.FieldList()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	q := "SELECT+" + strings.Join(names, ",") + "+FROM+" + sch.ObjectName()
	if !cutoff.IsZero() {
		q += "+WHERE+lastmodifieddate>" + cutoff.Format(soqlTimeLayout)
	}
	return q
}

// parseBatch converts one query-result page into a PullBatch. The
// remote id moves to the sfid column and every value is rendered as a
// SQL literal, escaped here and nowhere else. Fields without mirror
// columns (the id itself and compound addresses) are dropped.
func parseBatch(sch types.ObjectSchema, body string) (*types.PullBatch, error) {
	var resp struct {
		Done    bool                     `json:"done"`
		NextURL string                   `json:"nextRecordsUrl"`
		Records []map[string]interface{} `json:"records"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, errors.Wrap(err, "could not decode query result")
	}

	batch := &types.PullBatch{
		ObjectName: strings.ToLower(sch.ObjectName()),
		NextURL:    resp.NextURL,
		Done:       resp.Done,
	}
	for _, raw := range resp.Records {
		id, _ := raw["Id"].(string)
		if id == "" {
			log.Warnf("dropping %s record without an Id", sch.ObjectName())
			continue
		}
		row := types.Row{
			Columns: []string{"sfid"},
			Values:  []string{sqlbuild.EscapeLiteral("'" + id + "'")},
		}
		for _, f := range sch.FieldList() {
			if f.Name == "Id" || f.Kind == "address" {
				continue
			}
			row.Columns = append(row.Columns, strings.ToLower(f.Name))
			row.Values = append(row.Values, sqlValue(raw[f.Name]))
		}
		batch.Add(id, row)
	}
	return batch, nil
}

// sqlValue renders a decoded JSON value as a SQL literal.
func sqlValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return sqlbuild.EscapeLiteral("'" + t + "'")
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		// Nested values have no mirror column representation.
		return "NULL"
	}
}
