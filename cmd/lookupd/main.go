/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"io"
	"log"

	"github.com/carverauto/lookupd/pkg/config"
	"github.com/carverauto/lookupd/pkg/docstore"
	"github.com/carverauto/lookupd/pkg/failover"
	"github.com/carverauto/lookupd/pkg/lifecycle"
	"github.com/carverauto/lookupd/pkg/logger"
	"github.com/carverauto/lookupd/pkg/pubsub"
	"github.com/carverauto/lookupd/pkg/registry"
)

var configFile = flag.String("config", "/etc/lookupd/lookupd.json", "Path to config file")

func main() {
	flag.Parse()

	ctx := context.Background()

	bootLog, err := logger.New(logger.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	var cfg Config
	if err := config.NewConfig(bootLog).LoadAndValidate(ctx, *configFile, &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mainLog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := openStore(ctx, &cfg)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}

	queues := pubsub.NewQueueManager(mainLog)
	publisher := pubsub.NewPublisher(queues, mainLog)

	store := registry.NewStore(db, registry.NewLeaseManager(), publisher, cfg.URIPrefix, mainLog)

	scheduler := failover.NewScheduler(mainLog)
	scheduler.Register(failover.NewMaintenanceJob(store, mainLog), cfg.SweepInterval)
	scheduler.Register(failover.NewReplayCache(store, publisher, mainLog), cfg.RecoveryInterval)

	err = lifecycle.Run(ctx, &lifecycle.Options{
		ServiceName: "lookupd",
		Runner:      scheduler,
		Closers:     []io.Closer{db},
		Log:         mainLog,
	})
	if err != nil {
		log.Fatalf("Service error: %v", err)
	}
}

func openStore(ctx context.Context, cfg *Config) (docstore.Service, error) {
	switch cfg.Backend {
	case backendNats:
		return docstore.NewNatsStore(ctx, *cfg.Nats)
	case backendPostgres:
		return docstore.NewPostgresStore(ctx, *cfg.Postgres)
	default:
		return docstore.NewMemoryStore(), nil
	}
}
