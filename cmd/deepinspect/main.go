// Copyright 2026 Tesserae Systems
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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tesserae/deepinspect/catalog"
	"github.com/tesserae/deepinspect/core"
	"github.com/tesserae/deepinspect/inference"
	"github.com/tesserae/deepinspect/journal"
	badgerjournal "github.com/tesserae/deepinspect/journal/badger"
	"github.com/tesserae/deepinspect/pipeline"
	"github.com/tesserae/deepinspect/retrieval"
	"github.com/tesserae/deepinspect/retrieval/fs"
	sftpretrieval "github.com/tesserae/deepinspect/retrieval/sftp"
	"github.com/tesserae/deepinspect/transport"
	"github.com/tesserae/deepinspect/transport/kafka"
)

func main() {
	app := &cli.App{
		Name:  "deepinspect",
		Usage: "Document enrichment worker for catalog tagging",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "inspect",
				Usage:  "Run the inference worker: stage documents, run model inference, tag results",
				Action: inspectCommand,
				Flags: append(workerFlags(),
					&cli.StringFlag{
						Name:     "inference-host",
						Usage:    "Inference server host",
						EnvVars:  []string{"INFERENCE_API_SERVER_HOST"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "inference-port",
						Usage:   "Inference server port",
						EnvVars: []string{"INFERENCE_API_SERVER_PORT"},
						Value:   "5757",
					},
					&cli.StringFlag{
						Name:    "inference-endpoint",
						Usage:   "Inference server upload route",
						EnvVars: []string{"INFERENCE_API_SERVER_ENDPOINT"},
						Value:   "/infer",
					},
				),
			},
			{
				Name:   "annotate",
				Usage:  "Run the catalog worker: join catalog metadata with the client database",
				Action: annotateCommand,
				Flags: append(workerFlags(),
					&cli.StringFlag{
						Name:     "catalog-host",
						Usage:    "Metadata catalog base URL",
						EnvVars:  []string{"CATALOG_HOST"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "catalog-user",
						Usage:    "Metadata catalog user",
						EnvVars:  []string{"CATALOG_USER"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "catalog-password",
						Usage:    "Metadata catalog password",
						EnvVars:  []string{"CATALOG_PASSWORD"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "client-db",
						Usage:    "Path to the client records CSV",
						Required: true,
					},
				),
			},
			{
				Name:   "replies",
				Usage:  "List recently sent batch replies from the journal",
				Action: repliesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "journal-dir",
						Usage:    "BadgerDB directory the worker journals replies into",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of replies to list, newest first",
						Value: 20,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// workerFlags are shared by both worker commands: queue wiring, datasource
// wiring and local tuning.
func workerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "brokers",
			Usage:    "Kafka broker addresses",
			EnvVars:  []string{"KAFKA_BROKERS"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "work-topic",
			Usage:    "Kafka topic work messages arrive on",
			EnvVars:  []string{"KAFKA_WORK_TOPIC"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "reply-topic",
			Usage:    "Kafka topic replies are published to",
			EnvVars:  []string{"KAFKA_REPLY_TOPIC"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "connections-topic",
			Usage:   "Kafka topic carrying datasource invalidation notices (optional)",
			EnvVars: []string{"KAFKA_CONNECTIONS_TOPIC"},
		},
		&cli.StringFlag{
			Name:    "group-id",
			Usage:   "Kafka consumer group",
			EnvVars: []string{"KAFKA_GROUP_ID"},
			Value:   "deepinspect",
		},
		&cli.StringSliceFlag{
			Name:  "mount",
			Usage: "Filesystem datasource as source=/mount/root (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "sftp",
			Usage: "SFTP datasource as source=user:password@host:port/base/dir (repeatable)",
		},
		&cli.StringFlag{
			Name:  "staging-dir",
			Usage: "Directory documents are staged into (default: system temp)",
		},
		&cli.StringFlag{
			Name:  "journal-dir",
			Usage: "BadgerDB directory for the reply journal (empty disables journaling)",
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Usage: "Number of items processed concurrently",
			Value: 1,
		},
	}
}

func inspectCommand(c *cli.Context) error {
	port, err := strconv.Atoi(c.String("inference-port"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("inference port %q is not a number", c.String("inference-port")), 1)
	}

	config := inference.NewConfig(
		inference.WithHost(c.String("inference-host")),
		inference.WithPort(port),
		inference.WithEndpoint(c.String("inference-endpoint")),
	)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid inference configuration: %w", err)
	}

	client, err := inference.NewClient(config)
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}

	return runWorker(c, inference.NewEnricher(client))
}

func annotateCommand(c *cli.Context) error {
	session, err := catalog.NewSession(
		c.String("catalog-host"),
		c.String("catalog-user"),
		c.String("catalog-password"),
	)
	if err != nil {
		return fmt.Errorf("invalid catalog configuration: %w", err)
	}

	client, err := catalog.NewClient(session)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	db, err := catalog.LoadClientDB(c.String("client-db"))
	if err != nil {
		return fmt.Errorf("failed to load client database: %w", err)
	}
	slog.Info("client database loaded", "path", c.String("client-db"), "records", db.Len())

	return runWorker(c, catalog.NewEnricher(client, db))
}

func repliesCommand(c *cli.Context) error {
	repo, err := openJournal(c.String("journal-dir"))
	if err != nil {
		return err
	}
	defer repo.Close()

	entries, err := repo.Recent(context.Background(), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list journal entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("journal is empty")
		return nil
	}

	for _, entry := range entries {
		line, err := summarizeReply(entry)
		if err != nil {
			return err
		}
		fmt.Println(line)
	}
	return nil
}

// summarizeReply renders one journal entry as a single listing line with
// per-status outcome counts.
func summarizeReply(entry *journal.Entry) (string, error) {
	reply, err := transport.DecodeBatchReply(entry.Reply)
	if err != nil {
		return "", fmt.Errorf("journal entry %s: %w", entry.CorrelationID, err)
	}

	counts := make(map[core.Status]int)
	for _, outcome := range reply.Outcomes {
		counts[outcome.Status]++
	}
	return fmt.Sprintf("%s  %s  docs=%d success=%d failed=%d skipped=%d",
		entry.SentAt.Format(time.RFC3339), entry.CorrelationID, len(reply.Outcomes),
		counts[core.StatusSuccess], counts[core.StatusFailed], counts[core.StatusSkipped]), nil
}

// runWorker assembles the retrieval, processing and transport layers around
// the given enricher and serves work until interrupted.
func runWorker(c *cli.Context, enricher pipeline.Enricher) error {
	factory, err := buildFactory(c)
	if err != nil {
		return err
	}

	cache, err := retrieval.NewHandleCache(factory)
	if err != nil {
		return fmt.Errorf("failed to create handle cache: %w", err)
	}
	defer cache.Close()

	processor, err := pipeline.NewBatchProcessor(cache, enricher,
		pipeline.WithPoolSize(c.Int("pool-size")))
	if err != nil {
		return fmt.Errorf("failed to create batch processor: %w", err)
	}
	defer processor.Release()

	queue, err := kafka.New(&kafka.Config{
		Brokers:          c.StringSlice("brokers"),
		WorkTopic:        c.String("work-topic"),
		ReplyTopic:       c.String("reply-topic"),
		ConnectionsTopic: c.String("connections-topic"),
		GroupID:          c.String("group-id"),
	})
	if err != nil {
		return fmt.Errorf("failed to connect queue transport: %w", err)
	}
	defer queue.Close()

	opts := []pipeline.LoopOption{pipeline.WithStaleNotifier(queue)}
	if journalDir := c.String("journal-dir"); journalDir != "" {
		repo, err := openJournal(journalDir)
		if err != nil {
			return err
		}
		defer repo.Close()
		opts = append(opts, pipeline.WithJournal(repo))
	}

	loop, err := pipeline.NewWorkLoop(queue, cache, processor, opts...)
	if err != nil {
		return fmt.Errorf("failed to create work loop: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("work loop failed: %w", err)
	}
	slog.Info("shutting down")
	return nil
}

// buildFactory combines filesystem and SFTP datasources into one factory.
// Filesystem mounts are tried first.
func buildFactory(c *cli.Context) (retrieval.Factory, error) {
	mounts, err := parseMounts(c.StringSlice("mount"))
	if err != nil {
		return nil, err
	}
	endpoints, err := parseSFTPEndpoints(c.StringSlice("sftp"))
	if err != nil {
		return nil, err
	}
	if len(mounts) == 0 && len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one --mount or --sftp datasource is required")
	}

	var factories []retrieval.Factory
	if len(mounts) > 0 {
		var opts []fs.Option
		if dir := c.String("staging-dir"); dir != "" {
			opts = append(opts, fs.WithStagingDir(dir))
		}
		factories = append(factories, fs.NewFactory(mounts, opts...))
	}
	if len(endpoints) > 0 {
		var opts []sftpretrieval.Option
		if dir := c.String("staging-dir"); dir != "" {
			opts = append(opts, sftpretrieval.WithStagingDir(dir))
		}
		factories = append(factories, sftpretrieval.NewFactory(endpoints, opts...))
	}
	return retrieval.NewMultiFactory(factories...), nil
}

func parseMounts(entries []string) (map[core.SourceID]string, error) {
	mounts := make(map[core.SourceID]string, len(entries))
	for _, entry := range entries {
		source, root, ok := strings.Cut(entry, "=")
		if !ok || source == "" || root == "" {
			return nil, fmt.Errorf("invalid mount %q: expected source=/mount/root", entry)
		}
		mounts[core.SourceID(source)] = root
	}
	return mounts, nil
}

// parseSFTPEndpoints parses source=user:password@host:port/base/dir entries.
// The base directory is optional and defaults to the session root.
func parseSFTPEndpoints(entries []string) (map[core.SourceID]sftpretrieval.Endpoint, error) {
	endpoints := make(map[core.SourceID]sftpretrieval.Endpoint, len(entries))
	for _, entry := range entries {
		source, rest, ok := strings.Cut(entry, "=")
		if !ok || source == "" {
			return nil, fmt.Errorf("invalid sftp datasource %q: expected source=user:password@host:port/base/dir", entry)
		}
		creds, addr, ok := strings.Cut(rest, "@")
		if !ok {
			return nil, fmt.Errorf("invalid sftp datasource %q: missing user:password@", entry)
		}
		user, password, ok := strings.Cut(creds, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("invalid sftp datasource %q: missing user or password", entry)
		}

		baseDir := ""
		if slash := strings.IndexByte(addr, '/'); slash >= 0 {
			baseDir = addr[slash:]
			addr = addr[:slash]
		}
		if addr == "" {
			return nil, fmt.Errorf("invalid sftp datasource %q: missing host", entry)
		}
		if !strings.Contains(addr, ":") {
			addr += ":22"
		}

		endpoints[core.SourceID(source)] = sftpretrieval.Endpoint{
			Addr:     addr,
			User:     user,
			Password: password,
			BaseDir:  baseDir,
		}
	}
	return endpoints, nil
}

func openJournal(dir string) (journal.Repository, error) {
	backend, err := badgerjournal.OpenBackend(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open reply journal: %w", err)
	}
	return badgerjournal.NewRepository(backend), nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
