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

// ListObjects implements types.SorClient. The catalog is filtered to
// the mirrorable subset: ordinary objects must be createable,
// queryable, and layoutable; custom settings are always included.
func (c *Client) ListObjects(ctx context.Context) ([]types.SObject, error) {
	body, err := c.Get(ctx, func(instance string) string {
		return fmt.Sprintf(catalogTemplate, instance, c.cfg.APIVersion)
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		SObjects []types.SObject `json:"sobjects"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, errors.Wrap(err, "could not decode object catalog")
	}

	out := make([]types.SObject, 0, len(resp.SObjects))
	for _, so := range resp.SObjects {
		if (so.Createable && so.Queryable && so.Layoutable) || so.CustomSetting {
			out = append(out, so)
		}
	}
	log.Debugf("catalog holds %d objects, %d mirrorable", len(resp.SObjects), len(out))
	return out, nil
}

// DescribeObject implements types.SorClient.
func (c *Client) DescribeObject(ctx context.Context, name string) (*types.SObject, error) {
	body, err := c.Get(ctx, func(instance string) string {
		return fmt.Sprintf(describeTemplate, instance, c.cfg.APIVersion, name)
	})
	if err != nil {
		return nil, err
	}

	obj := &types.SObject{}
	if err := json.Unmarshal([]byte(body), obj); err != nil {
		return nil, errors.Wrapf(err, "could not decode describe result for %s", name)
	}
	return obj, nil
}
