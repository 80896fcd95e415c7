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
	"strconv"
	"time"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/setup"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// landingPage is what a human gets when they open the API root in a
// browser.
const landingPage = `<html>
<head><title>crm-sync</title></head>
<body>
<h4>===> SYNC API <===</h4>
<ul>
<li>GET /info</li>
<li>GET /setup/list</li>
<li>GET /setup/available</li>
<li>POST /setup/new</li>
<li>POST /setup/delete</li>
<li>GET /messages</li>
<li>GET /ws/messages</li>
<li>PUT /sync/start</li>
<li>PUT /sync/stop</li>
<li>GET /sync/messages</li>
<li>GET /ws/sync/messages</li>
</ul>
</body>
</html>
`

// statusResponse is the envelope for the mutating control plane calls.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Job     string `json:"job,omitempty"`
}

// infoResponse reports the remote session held by the mirror.
type infoResponse struct {
	SyncRunning bool   `json:"sync_running"`
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	Created     string `json:"created"`
}

// syncStateResponse reports whether the sync supervisor is running.
type syncStateResponse struct {
	SyncRunning bool `json:"sync_running"`
}

func (s *Server) handleLanding(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(landingPage)); err != nil {
		log.WithError(err).Debug("client went away mid-response")
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, req *http.Request) {
	info := &infoResponse{SyncRunning: s.engine.Running()}
	if login := s.sf.LoginData(); login != nil {
		info.AccessToken = login.AccessToken
		info.InstanceURL = login.InstanceURL
		info.Created = login.IssuedAt.Time().UTC().Format(time.RFC1123Z)
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleSetupList(w http.ResponseWriter, req *http.Request) {
	entries := []setup.RemoteObjectEntry{}
	err := s.setup.ListRemoteObjects(req.Context(), func(e setup.RemoteObjectEntry) {
		entries = append(entries, e)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSetupAvailable(w http.ResponseWriter, req *http.Request) {
	entries := []setup.DBObjectEntry{}
	err := s.setup.ListDBObjects(req.Context(), func(e setup.DBObjectEntry) {
		entries = append(entries, e)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSetupNew(w http.ResponseWriter, req *http.Request) {
	number, err := formNumber(req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	exists, err := s.setup.RemoteObjectExists(req.Context(), number)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if exists {
		respondError(w, http.StatusUnprocessableEntity,
			errors.Errorf("object %d already exists in the mirror", number))
		return
	}
	s.enqueue(w, provisionJob, number)
}

func (s *Server) handleSetupDelete(w http.ResponseWriter, req *http.Request) {
	number, err := formNumber(req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.enqueue(w, deleteJob, number)
}

func (s *Server) handleSyncStart(w http.ResponseWriter, req *http.Request) {
	if err := s.engine.Start(req.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, &syncStateResponse{SyncRunning: s.engine.Running()})
}

func (s *Server) handleSyncStop(w http.ResponseWriter, req *http.Request) {
	if err := s.engine.Stop(req.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, &syncStateResponse{SyncRunning: s.engine.Running()})
}

// drainHandler empties the given bus into a JSON array. Messages are
// delivered at most once across all HTTP and WebSocket consumers.
func (s *Server) drainHandler(b *bus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		msgs := b.Drain()
		out := make([]jsoniter.RawMessage, len(msgs))
		for i, msg := range msgs {
			out[i] = jsoniter.RawMessage(msg.String())
		}
		respondJSON(w, http.StatusOK, out)
	}
}

func handleHealth(w http.ResponseWriter, req *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		log.WithError(err).Debug("client went away mid-response")
	}
}

// formNumber extracts the 1-based listing index common to the setup
// mutations.
func formNumber(req *http.Request) (int, error) {
	raw := req.FormValue("number")
	number, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("number %q is not an integer", raw)
	}
	return number, nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("could not encode a response payload")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.WithError(err).Debug("client went away mid-response")
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, &statusResponse{Status: "Error", Message: err.Error()})
}
