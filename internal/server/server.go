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

// Package server contains the HTTP and WebSocket control plane for the
// mirror: listing and provisioning objects, starting and stopping the
// sync engine, and streaming the progress messages that both produce.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/config"
	"github.com/dahateb/crm-sync/internal/engine"
	"github.com/dahateb/crm-sync/internal/setup"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// shutdownGrace bounds how long in-flight requests may continue once
// the server has been told to exit.
const shutdownGrace = 5 * time.Second

// Server is the control plane for a running mirror.
type Server struct {
	buses    *bus.Buses
	cfg      *config.Config
	engine   *engine.Engine
	setup    *setup.Setup
	sf       types.SorClient
	triggers chan job
}

// New constructs a Server around its collaborators.
func New(
	cfg *config.Config,
	eng *engine.Engine,
	sf types.SorClient,
	set *setup.Setup,
	buses *bus.Buses,
) *Server {
	return &Server{
		buses:    buses,
		cfg:      cfg,
		engine:   eng,
		setup:    set,
		sf:       sf,
		triggers: make(chan job, triggerQueueDepth),
	}
}

// routes assembles the handler stack.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleLanding)
	r.Get("/info", s.handleInfo)
	r.Route("/setup", func(r chi.Router) {
		r.Get("/list", s.handleSetupList)
		r.Get("/available", s.handleSetupAvailable)
		r.Post("/new", s.handleSetupNew)
		r.Post("/delete", s.handleSetupDelete)
	})
	r.Route("/sync", func(r chi.Router) {
		r.Get("/messages", s.drainHandler(s.buses.Sync))
		r.Put("/start", s.handleSyncStart)
		r.Put("/stop", s.handleSyncStop)
	})
	r.Get("/messages", s.drainHandler(s.buses.Messages))
	r.Get("/ws/messages", s.streamHandler(s.buses.Messages))
	r.Get("/ws/sync/messages", s.streamHandler(s.buses.Sync))
	r.Get("/_/healthz", handleHealth)
	r.Method(http.MethodGet, "/_/varz", promhttp.Handler())
	return r
}

// Serve runs the API server, the trigger worker, and the sync
// supervisor until the context is canceled or one of them fails.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.URL,
		Handler: s.routes(),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gCtx.Done()
		// Shutdown needs a context that outlives the one that
		// requested it.
		grace, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownGrace)
		defer cancel()
		return srv.Shutdown(grace)
	})
	g.Go(func() error {
		log.Infof("control plane listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "control plane exited")
		}
		return nil
	})
	g.Go(func() error {
		return s.runTriggers(gCtx)
	})
	g.Go(func() error {
		return s.engine.Run(gCtx)
	})
	return g.Wait()
}

// requestLogger reports request outcomes at debug level and feeds the
// latency histogram.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		elapsed := time.Since(start)
		httpDurations.WithLabelValues(req.Method).Observe(elapsed.Seconds())
		log.WithFields(log.Fields{
			"elapsed": elapsed,
			"method":  req.Method,
			"path":    req.URL.Path,
			"reqid":   middleware.GetReqID(req.Context()),
			"status":  ww.Status(),
		}).Debug("http request")
	})
}
