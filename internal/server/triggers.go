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
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// triggerQueueDepth bounds the number of accepted, but not yet
// started, provisioning jobs.
const triggerQueueDepth = 64

type jobKind int

const (
	provisionJob jobKind = iota
	deleteJob
)

func (k jobKind) String() string {
	if k == deleteJob {
		return "delete"
	}
	return "provision"
}

// A job is a long-running setup operation accepted by the control
// plane and executed by the trigger worker.
type job struct {
	kind     jobKind
	index    int
	id       uuid.UUID
	enqueued time.Time
}

// enqueue accepts a job for the trigger worker and answers the request
// that submitted it.
func (s *Server) enqueue(w http.ResponseWriter, kind jobKind, index int) {
	j := job{kind: kind, index: index, id: uuid.New(), enqueued: time.Now()}
	select {
	case s.triggers <- j:
	default:
		respondError(w, http.StatusServiceUnavailable,
			errors.New("the trigger queue is full"))
		return
	}
	triggerJobs.WithLabelValues(kind.String()).Inc()
	respondJSON(w, http.StatusCreated, &statusResponse{Status: "OK", Job: j.id.String()})
}

// runTriggers executes queued jobs one at a time so that concurrent
// backfills never compete for the remote API quota.
func (s *Server) runTriggers(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-s.triggers:
			s.runJob(ctx, j)
		}
	}
}

func (s *Server) runJob(ctx context.Context, j job) {
	start := time.Now()
	notify := func(text string, count int64) {
		s.buses.Messages.Send(types.NewTriggerMessage(text, count, time.Since(start)))
	}
	log.WithFields(log.Fields{
		"job":    j.id,
		"kind":   j.kind,
		"number": j.index,
	}).Info("trigger job started")

	var err error
	switch j.kind {
	case deleteJob:
		var name string
		if name, err = s.setup.DeleteDBObject(ctx, j.index); err == nil {
			notify(fmt.Sprintf("Deleted Object: %s", name), 0)
		} else {
			notify(fmt.Sprintf("Error on Delete: %s", err), 0)
		}
	default:
		err = s.setup.ProvisionRemoteObject(ctx, j.index, true, notify)
	}

	elapsed := time.Since(start)
	triggerDurations.WithLabelValues(j.kind.String()).Observe(elapsed.Seconds())
	if err != nil {
		log.WithError(err).Warnf("trigger job %s failed after %s", j.id, elapsed)
		return
	}
	log.WithFields(log.Fields{
		"elapsed": elapsed,
		"job":     j.id,
	}).Debug("trigger job finished")
}
