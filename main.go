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

// crm-sync mirrors Salesforce objects into PostgreSQL tables and keeps
// both sides current. It runs either as an API server or, with -i, as
// an interactive console.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/dahateb/crm-sync/internal/config"
	"github.com/dahateb/crm-sync/internal/menu"
	"github.com/dahateb/crm-sync/internal/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	flags := &config.Flags{}
	flags.Bind(pflag.CommandLine)
	pflag.Parse()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		PadLevelText:    true,
		TimestampFormat: "060102 15:04:05",
	})
	switch flags.Verbosity {
	case 0:
		// Info is the default.
	case 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.TraceLevel)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err == nil {
		err = cfg.Preflight()
	}
	if err != nil {
		log.WithError(err).Fatal("configuration failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.Interactive {
		err = runMenu(ctx, cfg)
	} else {
		err = runServer(ctx, cfg)
	}
	if err != nil {
		log.WithError(err).Fatal("exiting")
	}
}

func runMenu(ctx context.Context, cfg *config.Config) error {
	m, cleanup, err := menu.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return m.Run(ctx)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	srv, cleanup, err := server.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return srv.Serve(ctx)
}
