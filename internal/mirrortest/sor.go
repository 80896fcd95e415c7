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

// Package mirrortest provides in-memory implementations of the service
// contracts for package tests: programmable results, recorded calls,
// and injectable failures.
package mirrortest

import (
	"context"
	"sync"
	"time"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/pkg/errors"
)

// Sor is an in-memory types.SorClient. Configure the exported fields,
// then hand it to the code under test. The zero value is usable.
type Sor struct {
	mu sync.Mutex

	// Objects is returned by ListObjects.
	Objects []types.SObject
	// Described maps object names to their full describe results.
	Described map[string]*types.SObject
	// Pages maps object names to query result pages, in order. The
	// query calls restart an object at page zero; NextRecords serves
	// the pages that follow.
	Pages map[string][]*types.PullBatch
	// Created and Failed are returned by PushRecords.
	Created map[int64]string
	Failed  map[int64]error
	// Login is returned by LoginData.
	Login *types.LoginData

	// Injectable failures.
	ListErr     error
	DescribeErr error
	QueryErr    error
	NextErr     error

	// Recorded calls.
	DescribeCalls []string
	Windows       []time.Duration
	Pushed        map[string][][]*types.Record

	pos map[string]int
}

var _ types.SorClient = (*Sor)(nil)

// ListObjects implements types.SorClient.
func (s *Sor) ListObjects(ctx context.Context) ([]types.SObject, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.Objects, nil
}

// DescribeObject implements types.SorClient.
func (s *Sor) DescribeObject(ctx context.Context, name string) (*types.SObject, error) {
	s.mu.Lock()
	s.DescribeCalls = append(s.DescribeCalls, name)
	s.mu.Unlock()
	if s.DescribeErr != nil {
		return nil, s.DescribeErr
	}
	if d, ok := s.Described[name]; ok {
		return d, nil
	}
	return nil, errors.Errorf("no describe result for %s", name)
}

// QueryAllRecords implements types.SorClient.
func (s *Sor) QueryAllRecords(
	ctx context.Context, sch types.ObjectSchema,
) (*types.PullBatch, error) {
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}
	return s.page(sch.ObjectName(), true)
}

// QueryUpdatedRecords implements types.SorClient.
func (s *Sor) QueryUpdatedRecords(
	ctx context.Context, sch types.ObjectSchema, window time.Duration,
) (*types.PullBatch, error) {
	s.mu.Lock()
	s.Windows = append(s.Windows, window)
	s.mu.Unlock()
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}
	return s.page(sch.ObjectName(), true)
}

// NextRecords implements types.SorClient.
func (s *Sor) NextRecords(
	ctx context.Context, sch types.ObjectSchema, prev *types.PullBatch,
) (*types.PullBatch, error) {
	if s.NextErr != nil {
		return nil, s.NextErr
	}
	return s.page(sch.ObjectName(), false)
}

// PushRecords implements types.SorClient.
func (s *Sor) PushRecords(
	ctx context.Context, objectName string, recs []*types.Record,
) (map[int64]string, map[int64]error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Pushed == nil {
		s.Pushed = make(map[string][][]*types.Record)
	}
	s.Pushed[objectName] = append(s.Pushed[objectName], recs)
	return s.Created, s.Failed
}

// LoginData implements types.SorClient.
func (s *Sor) LoginData() *types.LoginData {
	return s.Login
}

func (s *Sor) page(name string, reset bool) (*types.PullBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos == nil {
		s.pos = make(map[string]int)
	}
	if reset {
		s.pos[name] = 0
	}
	i := s.pos[name]
	pages := s.Pages[name]
	if i >= len(pages) {
		return nil, errors.Errorf("no page %d configured for %s", i, name)
	}
	s.pos[name] = i + 1
	return pages[i], nil
}
